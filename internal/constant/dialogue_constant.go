package constant

const (
	// ResetToken is the magic utterance that wipes a session's history.
	ResetToken = "reset"

	// ResetAckMessage confirms a completed reset.
	ResetAckMessage = "The conversation history has been cleared. What would you like to search for?"

	// ResetNoHistoryMessage answers a reset on a session with no stored turns.
	ResetNoHistoryMessage = "No previous conversation history was found for this session."

	// SmallTalkResponse steers early chitchat toward a search intent.
	SmallTalkResponse = "Hello! I can help you discover environmental and geospatial datasets. Tell me what kind of data you are looking for, and for which place or time."

	// ExtractionApology is shown when intent extraction fails outright.
	ExtractionApology = "I'm sorry, I had trouble understanding that. Could you rephrase what you are looking for?"

	// SynthesisApology is shown when answer generation fails after a search.
	SynthesisApology = "I'm sorry, something went wrong while preparing your answer. Please try again."

	// NoResultsContext is fed to the answer model when a search returns nothing.
	NoResultsContext = "No search results found using the current search criteria"
)

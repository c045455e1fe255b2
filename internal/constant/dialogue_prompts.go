package constant

const (
	// ConversationSystemPrompt drives intent extraction when a route has no
	// custom prompt of its own. The model must always answer with the JSON
	// shape described in ConversationFormatInstructions.
	ConversationSystemPrompt = `You are a helpful assistant that guides users toward a dataset search.
Your task is to collect, over one or more turns, a concise description of the data the user needs.

Rules:
- If the request is still vague, ask one clarifying question.
- Build a short search phrase in "search_criteria" out of everything learned so far.
- Set "ready_to_retrieve" to "yes" only when the criteria describe a concrete dataset need, otherwise "no".
- Suggest more specific phrasings in "narrower_terms" and more general ones in "broader_terms" when they exist, otherwise leave them empty.
- "answer" holds your conversational reply to the user.`

	// ConversationFormatInstructions pins the extraction output format.
	ConversationFormatInstructions = `Respond with a single JSON object and nothing else, using exactly these keys:
{
  "answer": "<your reply to the user>",
  "search_criteria": "<accumulated search phrase>",
  "ready_to_retrieve": "<yes or no>",
  "narrower_terms": "<comma separated narrower phrasings or empty>",
  "broader_terms": "<comma separated broader phrasings or empty>"
}`

	// SpatialEntityPrompt extracts a place name and its spatial scale from a
	// search phrase. %s is the search phrase.
	SpatialEntityPrompt = `Extract the geographic reference from the following search phrase.

Search phrase: "%s"

Identify:
- "spatial": the place name mentioned, or an empty string if there is none.
- "scale": one of "Local", "City", "Regional", "National", "Continental", "Global" describing the spatial extent the user means.

Examples:
- "flood maps for Cologne" -> {"spatial": "Cologne", "scale": "City"}
- "european land cover" -> {"spatial": "Europe", "scale": "Continental"}
- "global sea surface temperature" -> {"spatial": "", "scale": "Global"}

Respond with a single JSON object: {"spatial": "...", "scale": "..."}`

	// GazetteerPickerPrompt disambiguates gazetteer hits. First %s is the
	// place name, second %s is the scale, third %s is the numbered candidate
	// list.
	GazetteerPickerPrompt = `The user is searching for data about "%s" at the "%s" scale.
A gazetteer returned the following candidate places:

%s

Pick the candidate that best matches the name and scale. Respond with the number of the best candidate and nothing else.`

	// FinalAnswerPrompt synthesizes the closing answer. First %s is the
	// user's question, second %s is the retrieved context.
	FinalAnswerPrompt = `Answer the question using only the context below. Keep the answer to at most three sentences. If the context states that nothing was found, tell the user that no matching datasets were found and suggest loosening the search.

Question: %s

Context:
%s`

	// RouteDescriptionPrompt asks the model to describe a dataset collection
	// from sampled documents. First %s is the collection name, second %s is
	// the sample block.
	RouteDescriptionPrompt = `Here are example entries from a dataset collection named "%s":

%s

Write one sentence describing what kind of data this collection contains. Respond with the sentence only.`

	// RouteUtterancesPrompt asks for example user requests matching a
	// collection. %s is the collection description.
	RouteUtterancesPrompt = `A dataset collection is described as: "%s"

Write 5 short example requests a user might type when looking for this kind of data, one per line. Respond with the 5 lines only.`

	// RouteSystemPromptTemplate asks for a route-specific conversation
	// prompt. %s is the collection description.
	RouteSystemPromptTemplate = `A dataset collection is described as: "%s"

Write a short system prompt for an assistant that helps users search this collection. The assistant asks clarifying questions about the theme, place and time of interest. Respond with the prompt text only.`
)

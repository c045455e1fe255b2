package bootstrap

import (
	"context"
	"log"
	"time"

	"spatial-search-be/internal/config"
	"spatial-search-be/internal/controller"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/internal/repository/memory"
	"spatial-search-be/internal/repository/unitofwork"
	"spatial-search-be/internal/service"
	"spatial-search-be/pkg/connector"
	"spatial-search-be/pkg/dialogue"
	"spatial-search-be/pkg/dialogue/answer"
	"spatial-search-be/pkg/dialogue/intent"
	"spatial-search-be/pkg/dialogue/retrieval"
	"spatial-search-be/pkg/dialogue/route"
	"spatial-search-be/pkg/dialogue/smalltalk"
	"spatial-search-be/pkg/dialogue/spatial"
	"spatial-search-be/pkg/embedding"
	"spatial-search-be/pkg/embedding/jina"
	"spatial-search-be/pkg/events"
	"spatial-search-be/pkg/gazetteer"
	"spatial-search-be/pkg/llm/factory"
	"spatial-search-be/pkg/websearch"

	pktNats "spatial-search-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DialogueController controller.IDialogueController
	IndexController    controller.IIndexController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Live route table, swapped on rebuild
	RouteClassifier *route.Classifier
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	dialogueLogger := logger.NewIsolatedLogger(cfg.App.DialogueLogPath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Model Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// In-memory per-session locks
	sessionRegistry := memory.NewSessionRegistry()

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}
	if natsSub != nil {
		err = natsSub.Subscribe("events.>", "index-audit", func(ctx context.Context, event events.Event) error {
			sysLogger.Info("EventAudit", "Event received", map[string]interface{}{
				"subject": event.EventType(),
				"payload": event.Payload(),
			})
			return nil
		})
		if err != nil {
			log.Printf("[WARN] Failed to subscribe to index events: %v", err)
		}
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. Dialogue Components
	gazetteerClient := gazetteer.NewClient(cfg.Search.GazetteerURL, rdb, dialogueLogger)
	webSearchClient := websearch.NewClient(cfg.Search.WebSearchURL, cfg.Keys.WebSearch)

	routeSource := service.NewRouteSource(uowFactory)
	routeBuilder := route.NewBuilder(routeSource, llmProvider, embeddingProvider, dialogueLogger)
	memoTTL := time.Duration(cfg.Search.RouteCacheTTLMin) * time.Minute

	table, err := routeBuilder.Build(context.Background())
	if err != nil {
		log.Printf("[WARN] Failed to build route table, starting with empty routes: %v", err)
		table = route.NewTable(nil)
	}
	routeClassifier := route.NewClassifier(table, embeddingProvider, memoTTL, dialogueLogger)
	log.Printf("[INFO] Route table ready with %d routes", table.Len())

	checkpointStore := service.NewCheckpointStore(uowFactory)
	vectorStore := service.NewVectorStore(uowFactory)

	graph := dialogue.NewGraph(
		checkpointStore,
		routeClassifier,
		intent.NewExtractor(llmProvider, dialogueLogger),
		smalltalk.NewClassifier(embeddingProvider, 0, dialogueLogger),
		spatial.NewResolver(llmProvider, gazetteerClient, dialogueLogger),
		retrieval.NewDispatcher(embeddingProvider, vectorStore, dialogueLogger),
		answer.NewSynthesizer(llmProvider, dialogueLogger),
		webSearchClient,
		dialogueLogger,
		dialogue.Config{
			SmallTalkTurnLimit: cfg.Search.SmallTalkLimit,
			SearchK:            cfg.Search.ResultCount,
			GeometryTopN:       cfg.Search.GeometryTopN,
			TextualTopN:        cfg.Search.TextualTopN,
			StepTimeout:        time.Duration(cfg.Ai.StepTimeoutSecs) * time.Second,
		},
	)

	// 6. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Index.IndexTopicName)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Index.IndexTopicName,
		uowFactory,
		embeddingProvider,
		sysLogger,
	)

	dialogueService := service.NewDialogueService(graph, checkpointStore, sessionRegistry, dialogueLogger)

	pygeoapiConnector := connector.NewPyGeoAPIConnector(
		buildInstances(cfg.Index.PyGeoAPIInstances, cfg.Index.ExcludedCollections),
		sysLogger,
	)
	indexService := service.NewIndexService(
		uowFactory,
		pygeoapiConnector,
		cfg.Index.GeoJSONSource,
		cfg.Index.GeoJSONTagName,
		publisherService,
		embeddingProvider,
		routeBuilder,
		routeClassifier,
		natsPub,
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		DialogueController: controller.NewDialogueController(dialogueService),
		IndexController:    controller.NewIndexController(indexService),
		ConsumerService:    consumerService,
		RouteClassifier:    routeClassifier,
	}
}

// buildInstances combines the configured instance URLs with the globally
// excluded collection URLs. Per-instance exclusions can still be given inline
// with the "url|excluded,excluded" form.
func buildInstances(entries, excluded []string) []connector.Instance {
	instances := connector.ParseInstances(entries)
	for i := range instances {
		instances[i].ExcludeCollections = append(instances[i].ExcludeCollections, excluded...)
	}
	return instances
}

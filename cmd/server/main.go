package main

import (
	main_config "github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/queue"
	"github.com/dkotelnikov/txgate/internal/repositories"
	"github.com/dkotelnikov/txgate/internal/server"
	"github.com/dkotelnikov/txgate/internal/server/handlers"
	"github.com/dkotelnikov/txgate/internal/storage"
	"go.uber.org/fx"
)

func main() {
	fx.New(CreateApp()).Run()
}

func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(
			logging.NewZapLogger,
			logging.NewKafkaErrorLogger,
			logging.NewKafkaLogger,
			storage.NewStorage,

			server.NewServer,
			handlers.NewWebhooksHandler,
			handlers.NewTransactionsHandler,
			handlers.NewHealthHandler,
			fx.Annotate(queue.NewPublisher, fx.As(new(handlers.JobsPublisher))),
			fx.Annotate(repositories.NewTransactionsRepository, fx.As(new(handlers.WebhooksTransactionsRepository))),
			fx.Annotate(repositories.NewTransactionsRepository, fx.As(new(handlers.StatusTransactionsRepository))),
		),
		fx.Supply(main_config.MustNewConfig()),
		fx.Invoke(startServer),
	)
}

func startServer(*server.Server) {}

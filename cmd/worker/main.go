package main

import (
	main_config "github.com/dkotelnikov/txgate/internal/config"
	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/repositories"
	"github.com/dkotelnikov/txgate/internal/storage"
	"github.com/dkotelnikov/txgate/internal/worker"
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

			worker.NewConsumer,
			fx.Annotate(worker.NewProcessor, fx.As(new(worker.TransactionProcessor))),
			fx.Annotate(repositories.NewTransactionsRepository, fx.As(new(worker.ProcessorTransactionsRepository))),
		),
		fx.Supply(main_config.MustNewConfig(), worker.MustNewConfig()),
		fx.Invoke(startConsumer),
	)
}

func startConsumer(*worker.Consumer) {}

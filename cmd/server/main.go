package main

import (
	"context"

	"github.com/saba2003/devcamper-api/config"
	"github.com/saba2003/devcamper-api/dependencies"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/graceful"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/mailer"
	"github.com/saba2003/devcamper-api/restmux"
	"github.com/saba2003/devcamper-api/service"
	"github.com/saba2003/devcamper-api/tools/ratelimit"

	// brokers of the mail queue and the cache fanout
	_ "github.com/saba2003/devcamper-api/dependencies/broker/kafka"
	_ "github.com/saba2003/devcamper-api/dependencies/broker/memory"
	// databases, picked by the scheme of the db uri
	_ "github.com/saba2003/devcamper-api/dependencies/database/mock"
	_ "github.com/saba2003/devcamper-api/dependencies/mongo"
	_ "github.com/saba2003/devcamper-api/dependencies/sql"
)

// Config the config file, see configs/config.yaml
type Config struct {
	Log          log.Config           `yaml:"log"`
	Port         string               `yaml:"port" env:"PORT"`
	Dependencies service.Dependencies `yaml:"dependencies"`
	Worker       Worker               `yaml:"worker"`
	Service      service.Config       `yaml:"service"`
	Apis         restmux.Config       `yaml:"apis"`
	RateLimit    ratelimit.Rules      `yaml:"rateLimit"`
}

// Worker the delivery of a queued mailer
type Worker struct {
	dependencies.Dependency
	Relay *mailer.Mail `required:"false"`
}

func main() {
	ctx := context.Background()
	var cfg Config
	err := config.Init(ctx, "", &cfg, dependencies.WithNewFns(database.New))
	if err != nil {
		log.Action("InitConfig").Fatal(err.Error())
	}
	srv, err := service.New(ctx, &cfg.Dependencies, &cfg.Service)
	if err != nil {
		log.Action("InitService").Fatal(err.Error())
	}
	limiter := &ratelimit.Limiter{Rules: &cfg.RateLimit}
	if cfg.Dependencies.Redis != nil {
		limiter.PersistenceFn = cfg.Dependencies.Redis.RateLimitN
	}
	opts := []restmux.Option{restmux.WithConfig(&cfg.Apis), restmux.WithLimiter(limiter)}
	if cfg.Port != "" {
		opts = append(opts, restmux.WithHTTPAddr(":"+cfg.Port))
	}
	gs := restmux.NewServer(opts...)
	srv.Register(gs)
	if cfg.Worker.Relay != nil && cfg.Dependencies.Mail != nil {
		workerCtx, cancel := context.WithCancel(ctx)
		graceful.AddCloser(func(context.Context) error {
			cancel()
			return nil
		})
		if err = mailer.Worker(workerCtx, cfg.Dependencies.Mail, "devcamper-mailer", cfg.Worker.Relay); err != nil {
			log.Action("StartWorker").Fatal(err.Error())
		}
	}
	log.Action("Start").Info("Server running in %s mode", cfg.Service.Env)
	if err = gs.Start(); err != nil {
		log.Action("Start").Error(err.Error())
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/library-portal/pkg/circuit_breaker"
	"github.com/Astemirdum/library-portal/pkg/fine"
	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/pkg/logger"
	"github.com/kelseyhightower/envconfig"
)

type HTTPServer struct {
	Host         string        `envconfig:"PORTAL_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `envconfig:"PORTAL_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ" default:"15s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE" default:"30s"`
}

type API struct {
	BaseURL string        `envconfig:"LIBRARY_API_URL" default:"https://library-management-b0nw.onrender.com/api"`
	Timeout time.Duration `envconfig:"LIBRARY_API_TIMEOUT" default:"30s"`
	Breaker circuit_breaker.Config
}

type Fine struct {
	PerDay int `envconfig:"FINE_PER_DAY" default:"5"`
	Cap    int `envconfig:"FINE_CAP" default:"200"`
}

func (f Fine) Calculator() fine.Calculator {
	return fine.New(f.PerDay, f.Cap)
}

type Session struct {
	CookieName  string        `envconfig:"SESSION_COOKIE" default:"sid"`
	TTL         time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	LogoutDelay time.Duration `envconfig:"SESSION_LOGOUT_DELAY" default:"700ms"`
	Secure      bool          `envconfig:"SESSION_SECURE" default:"false"`
}

type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD" json:"-"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (r Redis) Enabled() bool {
	return r.Addr != ""
}

type Config struct {
	Server  HTTPServer
	API     API
	Fine    Fine
	Session Session
	Redis   Redis
	Kafka   kafka.Config
	Log     logger.Log
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		var config Config
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		for _, op := range ops {
			op(&config)
		}
		cfg = config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}

package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Pipeline Pipeline `yaml:"pipeline"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	CacheBackend  string `yaml:"cacheBackend"` // redis, memcached, none
	MemcachedAddr string `yaml:"memcachedAddr"`
	CacheTTLSec   int    `yaml:"cacheTTLSeconds"`
	AdminToken    string `yaml:"adminToken"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Pipeline struct {
	ContentAPI     string `yaml:"contentApi"` // WordPress REST base, e.g. https://example.com/wp-json/wp/v2
	SyncAPI        string `yaml:"syncApi"`    // schemad base URL
	SiteURL        string `yaml:"siteUrl"`
	PublisherID    string `yaml:"publisherId"` // @id of the publisher Organization node
	PageSize       int    `yaml:"pageSize"`
	BatchSize      int    `yaml:"batchSize"`
	PacingDelaySec int    `yaml:"pacingDelaySeconds"`
}

func (s Server) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSec) * time.Second
}

func (p Pipeline) PacingDelay() time.Duration {
	return time.Duration(p.PacingDelaySec) * time.Second
}

func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Server.CacheTTLSec == 0 {
		config.Server.CacheTTLSec = 60
	}
	if config.Pipeline.PageSize == 0 {
		config.Pipeline.PageSize = 100
	}
	if config.Pipeline.BatchSize == 0 {
		config.Pipeline.BatchSize = 50
	}
	if config.Pipeline.PacingDelaySec == 0 {
		config.Pipeline.PacingDelaySec = 1
	}

	// The admin capability is an opaque secret; the environment wins over
	// the config file so it never has to live on disk.
	if token := os.Getenv("SCHEMAD_ADMIN_TOKEN"); token != "" {
		config.Server.AdminToken = token
	}

	return config, nil
}

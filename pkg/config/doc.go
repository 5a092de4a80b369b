// Package config provides configuration management for handlepool.
//
// # Key Features
//
// - PoolConfig: one structure describing a pool, its observability and a load run
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from NewPoolConfig and validation that mirrors the pool's own rules
//
// # Usage
//
// ## Loading from YAML
//
//	cfg, err := config.LoadPoolConfig("pool.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// ## Environment Variable Substitution
//
//	# pool.yaml
//	name: sessions
//	pool:
//	  min: 2
//	  max: ${POOL_MAX}
//	  delay: 10ms
//
// The command line tool reads the same structure through viper, so every
// key can also be set with a HANDLEPOOL_ prefixed environment variable
// (HANDLEPOOL_POOL_MAX=32) or a flag.
package config

package config_test

import (
	"fmt"
	"log"
	"time"

	"github.com/ajitpratap0/handlepool/pkg/config"
)

// ExampleNewPoolConfig demonstrates the default configuration.
func ExampleNewPoolConfig() {
	cfg := config.NewPoolConfig("sessions")

	fmt.Printf("Bounds: %d..%d\n", cfg.Pool.Min, cfg.Pool.Max)
	fmt.Printf("Rate limited: %t\n", cfg.Pool.IsRateLimited())
	fmt.Printf("Workers: %d\n", cfg.Simulation.Workers)

	// Output:
	// Bounds: 0..10
	// Rate limited: false
	// Workers: 4
}

// ExamplePoolConfig_Validate shows how invalid bounds are rejected.
func ExamplePoolConfig_Validate() {
	cfg := config.NewPoolConfig("sessions")
	cfg.Pool.Delay = 50 * time.Millisecond
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Pool.Min = 11
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// invalid_bounds: pool bounds min=11 max=10 are invalid
}

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// services the widget service can use locally; all of them are optional.
var services = []string{"kafka", "redis", "mysql", "stripe-mock"}

func main() {
	fmt.Println("Setting up Payment Widget development environment")

	if err := checkDocker(); err != nil {
		fmt.Printf("Docker issue detected: %v\n", err)
		fmt.Println("You can still run without external services:")
		printEnv(false)
		return
	}

	fmt.Println("Docker is running")
	fmt.Printf("Starting %s...\n", strings.Join(services, ", "))

	cmd := exec.Command("docker-compose", append([]string{"up", "-d"}, services...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Printf("Failed to start services: %v\n", err)
		printEnv(false)
		return
	}

	fmt.Println("Services started successfully. Suggested environment:")
	printEnv(true)
}

func printEnv(withServices bool) {
	if !withServices {
		fmt.Println("  KAFKA_MOCK_MODE=true DB_ENABLED=false")
		return
	}
	fmt.Println("  KAFKA_MOCK_MODE=false KAFKA_BROKERS=localhost:9092")
	fmt.Println("  REDIS_ADDR=localhost:6379")
	fmt.Println("  DB_ENABLED=true DB_HOST=localhost DB_PORT=3306")
	fmt.Println("  STRIPE_API_BASE_URL=http://localhost:12111")
}

func checkDocker() error {
	return exec.Command("docker", "info").Run()
}

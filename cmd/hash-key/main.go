package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"restaurant-pos/internal/model"
	"restaurant-pos/pkg/logger"
)

// hash-key prints an AUTH_ACCOUNTS entry for an operator. The key is read from
// -key or, when omitted, from the first line of stdin.
func main() {
	name := flag.String("name", "", "operator name")
	role := flag.String("role", model.RoleStaff, "operator role: admin, manager or staff")
	key := flag.String("key", "", "access key (read from stdin when empty)")
	flag.Parse()

	log := logger.Get()
	if *name == "" {
		log.Fatal("-name is required")
	}
	if !model.IsValidRole(*role) {
		log.Fatalf("unknown role %q", *role)
	}

	secret := *key
	if secret == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.WithError(err).Fatal("Failed to read key from stdin")
		}
		secret = strings.TrimSpace(line)
	}
	if secret == "" {
		log.Fatal("key must not be empty")
	}

	hashed, err := model.HashKey(secret)
	if err != nil {
		log.WithError(err).Fatal("Failed to hash key")
	}
	fmt.Printf("%s:%s:%s\n", *name, *role, hashed)
}

package main

import (
	"fmt"
	"os"

	"asreval/internal/config"

	"github.com/pelletier/go-toml/v2"
)

func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	fmt.Printf("# effective config (file: %s)\n%s", cfg.Paths.ConfigPath, out)
}

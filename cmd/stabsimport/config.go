package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/jtang613/gostabs/pkg/stabs/importer"
)

// tomlConfig represents the optional stabsimport configuration file.
type tomlConfig struct {
	Import struct {
		Types           *bool `toml:"types"`
		Functions       *bool `toml:"functions"`
		Globals         *bool `toml:"globals"`
		MarkInlinedCode *bool `toml:"mark-inlined-code"`
		LineNumbers     *bool `toml:"line-numbers"`
	} `toml:"import"`
	Tool struct {
		Path string `toml:"path"`
	} `toml:"tool"`
	Neo4j struct {
		URI  string `toml:"uri"`
		User string `toml:"user"`
		Pass string `toml:"pass"`
	} `toml:"neo4j"`
}

// config is the fully resolved runtime configuration: file settings
// overlaid by environment variables.
type config struct {
	Options   importer.Options
	ToolPath  string
	Neo4jURI  string
	Neo4jUser string
	Neo4jPass string
}

// loadConfig resolves the runtime configuration. The configuration file
// is optional; environment variables win over file settings.
func loadConfig(path string) (*config, error) {
	cfg := &config{
		Options:  importer.DefaultOptions(),
		ToolPath: "stdump",
	}

	if path != "" {
		buff, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open config file at `%s`: %w", path, err)
		}
		fileCfg := &tomlConfig{}
		if err := toml.Unmarshal(buff, fileCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file at `%s`: %w", path, err)
		}
		applyBool(&cfg.Options.ImportDataTypes, fileCfg.Import.Types)
		applyBool(&cfg.Options.ImportFunctions, fileCfg.Import.Functions)
		applyBool(&cfg.Options.ImportGlobals, fileCfg.Import.Globals)
		applyBool(&cfg.Options.MarkInlinedCode, fileCfg.Import.MarkInlinedCode)
		applyBool(&cfg.Options.OutputLineNumbers, fileCfg.Import.LineNumbers)
		if fileCfg.Tool.Path != "" {
			cfg.ToolPath = fileCfg.Tool.Path
		}
		cfg.Neo4jURI = fileCfg.Neo4j.URI
		cfg.Neo4jUser = fileCfg.Neo4j.User
		cfg.Neo4jPass = fileCfg.Neo4j.Pass
	}

	if v := os.Getenv("STDUMP_PATH"); v != "" {
		cfg.ToolPath = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Neo4jURI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.Neo4jUser = v
	}
	if v := os.Getenv("NEO4J_PASS"); v != "" {
		cfg.Neo4jPass = v
	}
	return cfg, nil
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

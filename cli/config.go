package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scholarseek/scholarseek/models"
)

const defaultConfigPath = "/etc/scholarseek/config.yaml"

func isTestRun() bool {
	return strings.HasSuffix(os.Args[0], ".test")
}

func firstExistingPath(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadConfig(cfg *models.Config) error {
	configPath := firstExistingPath(os.Getenv("SCHOLARSEEK_CONFIG"), defaultConfigPath, "./config.yaml", "../config.yaml")
	if configPath == "" {
		if isTestRun() {
			return nil
		}
		return errors.New("config.yaml not found")
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(configData, cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	logrusLogger.Printf("Loaded config from %s", configPath)
	return nil
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const envExampleFile = ".env.example"

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(envExampleFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", envExampleFile, err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# TohoInfo Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: TOHOINFO_<SECTION>_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n\n")

	writeSection(&content, cmd, "Spotify Configuration (Required for the watcher)", []envVar{
		{flag: "spotify-client-id", example: "your_client_id", comment: "App client ID from the Spotify dashboard"},
		{flag: "spotify-client-secret", example: "your_client_secret", comment: "App client secret"},
		{flag: "spotify-redirect-url", comment: "Must match the app's redirect URI"},
		{flag: "spotify-token-path", comment: "Where the OAuth token is cached"},
	})
	writeSection(&content, cmd, "TouhouDB Configuration", []envVar{
		{flag: "touhoudb-base-url", comment: "TouhouDB instance"},
		{flag: "touhoudb-language", comment: "Name language: Default, Japanese, Romaji, English"},
		{flag: "touhoudb-timeout", comment: "Per-request timeout"},
	})
	writeSection(&content, cmd, "Matching Configuration", []envVar{
		{flag: "title-strip-tags", example: "Remastered,Instrumental", comment: "Comma-separated decoration tags (default: built-in list)"},
		{flag: "link-service", comment: "PV service used for original links"},
		{flag: "overrides-file", example: "./overrides.toml", comment: "Curated id -> link table (.json or .toml)"},
	})
	writeSection(&content, cmd, "Watcher and History", []envVar{
		{flag: "poll-interval", comment: "How often the player is polled"},
		{flag: "history-path", comment: "sqlite database of identified tracks"},
		{flag: "history-size", comment: "Maximum number of tracks kept"},
	})
	writeSection(&content, cmd, "HTTP Server Configuration", []envVar{
		{flag: "server-host", example: "127.0.0.1", comment: "Server bind address"},
		{flag: "server-port", comment: "Server port"},
	})
	writeSection(&content, cmd, "Logging Configuration", []envVar{
		{flag: "log-level", comment: "Log level: debug, info, warn, error"},
		{flag: "log-format", comment: "Log format: json, console, auto"},
	})

	generateQuickSetupGuide(&content)

	return content.String()
}

type envVar struct {
	flag    string
	example string
	comment string
}

func writeSection(content *strings.Builder, cmd *cobra.Command, title string, vars []envVar) {
	flagNames := make([]string, 0, len(vars))
	for _, v := range vars {
		flagNames = append(flagNames, "--"+v.flag)
	}

	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# CLI: %s\n", strings.Join(flagNames, ", "))

	for _, v := range vars {
		defValue := getDefaultValueString(cmd, v.flag)
		value := v.example
		if value == "" {
			value = defValue
		}
		line := fmt.Sprintf("%s=%s", flagToEnvVar(v.flag), value)
		if defValue != "" && defValue != "[]" {
			fmt.Fprintf(content, "%-48s # %s (default: %s)\n", line, v.comment, defValue)
		} else {
			fmt.Fprintf(content, "%-48s # %s\n", line, v.comment)
		}
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func generateQuickSetupGuide(content *strings.Builder) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# QUICK SETUP GUIDE\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("\n")
	content.WriteString("# 1. SPOTIFY SETUP (Required):\n")
	content.WriteString("#    - Go to https://developer.spotify.com/dashboard\n")
	content.WriteString("#    - Create new app with name \"TohoInfo\"\n")
	content.WriteString("#    - Add redirect URI: http://127.0.0.1:8080/callback\n")
	content.WriteString("#    - Copy Client ID and Secret to config above\n")
	content.WriteString("#    - Playing originals on demand needs Spotify Premium\n")
	content.WriteString("\n")
	content.WriteString("# 2. TEST CONFIGURATION:\n")
	content.WriteString("#    go run ./cmd/tohoinfo --help                            # See all CLI options\n")
	content.WriteString("#    go run ./cmd/tohoinfo normalize \"Bad Apple!! (Remastered)\"\n")
	content.WriteString("#    go run ./cmd/tohoinfo identify --title \"Bad Apple!!\"    # One lookup, no Spotify\n")
	content.WriteString("#    go run ./cmd/tohoinfo --log-level=debug                 # Run the watcher\n")
	content.WriteString("\n")
}

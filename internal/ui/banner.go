// Package ui provides styled console output for the plugin's startup.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// PrintBanner displays the startup banner with the endpoint listing the
// host (or a curious operator) needs to drive the plugin.
func PrintBanner(name, version, addr string) {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	fmt.Println()
	cyan.Printf("  %s v%s\n", name, version)
	dim.Printf("  listening on http://%s\n\n", addr)

	white.Println("  Endpoints:")
	printEndpoint("GET ", "/metadata", "plugin metadata")
	printEndpoint("POST", "/initialize", "apply provider configuration")
	printEndpoint("GET ", "/health", "health report with latency")
	printEndpoint("POST", "/chat/completions", "forward completion to provider")
	printEndpoint("GET ", "/models", "model catalog")
	printEndpoint("POST", "/cleanup", "release resources")
	printEndpoint("GET ", "/metrics", "prometheus metrics")
	fmt.Println()
}

func printEndpoint(method, path, desc string) {
	yellow := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)
	yellow.Printf("    %s %-22s", method, path)
	dim.Printf("  %s\n", desc)
}

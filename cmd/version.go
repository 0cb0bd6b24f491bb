package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// runVersion prints version and environment information.
func runVersion() {
	fmt.Printf("Kanpan %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	fmt.Println("Environment:")
	printKeyStatus("GEMINI_API_KEY")
	printKeyStatus("OPENAI_API_KEY")
	printKeyStatus("TUSHARE_TOKEN")
}

// printKeyStatus reports whether a credential is configured without
// printing its full content.
func printKeyStatus(name string) {
	v := os.Getenv(name)
	if v == "" {
		fmt.Printf("  %s: not set\n", name)
		return
	}
	if len(v) < 8 {
		fmt.Printf("  %s: configured\n", name)
		return
	}
	fmt.Printf("  %s: %s...%s (configured)\n", name, v[:4], v[len(v)-4:])
}

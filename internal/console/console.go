// Package console prints human-facing terminal output alongside the
// structured logs.
package console

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	okBadge   = color.New(color.FgGreen, color.Bold).SprintFunc()
	infoBadge = color.New(color.FgCyan, color.Bold).SprintFunc()
	dimText   = color.New(color.Faint).SprintFunc()
)

// Banner prints the startup summary.
func Banner(addr string, oidcEnabled, webauthnEnabled bool) {
	fmt.Println()
	fmt.Printf("  %s agentmint\n", infoBadge("▲"))
	fmt.Printf("  %s listening on %s\n", dimText("→"), addr)
	fmt.Printf("  %s oidc=%v webauthn=%v\n", dimText("→"), oidcEnabled, webauthnEnabled)
	fmt.Println()
}

// Mint prints one line per issued token.
func Mint(sub, action, jti string) {
	fmt.Printf("  %s mint  sub=%s action=%s jti=%s\n", okBadge("MINT"), sub, action, dimText(jti))
}

// Redeem prints one line per consumed token.
func Redeem(sub, action string, totalUs int64) {
	fmt.Printf("  %s proxy sub=%s action=%s %s\n", okBadge("OK"), sub, action, dimText(fmt.Sprintf("%dμs", totalUs)))
}

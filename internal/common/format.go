package common

import (
	"fmt"
	"strings"

	"marketplace-escrow-go/internal/models"
	"marketplace-escrow-go/internal/money"
)

const (
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", width))
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// PrintWallet prints one wallet as a list item with its detail lines.
func PrintWallet(label string, w *models.WalletView, isLast bool) {
	fmt.Printf("%s%-40s %12s EUR\n", BoxPrefix(isLast), label, w.Balance)
	detail := BoxDetailPrefix(isLast)
	if w.EscrowBalance != "" {
		fmt.Printf("%s  escrow:        %12s EUR\n", detail, w.EscrowBalance)
	}
	fmt.Printf("%s  total earned:  %12s EUR\n", detail, w.TotalEarned)
	if w.RewardPoints > 0 {
		fmt.Printf("%s  points:        %12d\n", detail, w.RewardPoints)
	}
}

// PrintConservation prints the global conservation report.
func PrintConservation(r *models.ConservationReport) {
	fmt.Printf("Deposits in:       %12s EUR\n", money.Format(r.TotalDeposits))
	fmt.Printf("Withdrawals out:   %12s EUR\n", money.Format(r.TotalWithdrawals))
	fmt.Printf("User balances:     %12s EUR\n", money.Format(r.UserBalances))
	fmt.Printf("Platform revenue:  %12s EUR\n", money.Format(r.PlatformBalance))
	fmt.Printf("Escrow held:       %12s EUR\n", money.Format(r.EscrowBalance))
	if r.Balanced() {
		fmt.Println("Status:            balanced")
	} else {
		fmt.Printf("Status:            UNBALANCED by %s EUR\n", money.Format(r.Difference))
	}
}

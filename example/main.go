// Package main demonstrates basic usage of the sivaguard library.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/sivaguard"
)

func main() {
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s <platform:claimed>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s x:@jane_doe github:janedoe\n", os.Args[0])
		os.Exit(1)
	}

	var claims []identity.Claim
	for _, arg := range flag.Args() {
		name, claimed, ok := strings.Cut(arg, ":")
		if !ok {
			log.Fatalf("Invalid claim %q", arg)
		}
		p, err := identity.ParsePlatform(name)
		if err != nil {
			log.Fatalf("Invalid claim %q: %v", arg, err)
		}
		claims = append(claims, identity.Claim{Platform: p, Claimed: claimed})
	}

	guard := sivaguard.New(sivaguard.WithHTTPClient(httpcache.NewClient()))
	res, err := guard.Verify(context.Background(), claims)
	if err != nil {
		log.Fatalf("Failed to verify: %v", err)
	}

	fmt.Printf("Action:   %s\n", res.Decision.Action)
	fmt.Printf("Overall:  %.2f\n", res.Risk.OverallRisk)
	fmt.Printf("Reasons:  %s\n", strings.Join(res.Decision.Reasons, ", "))
	for _, step := range res.NextSteps {
		fmt.Printf("Next:     %s\n", step.Title)
	}
}

package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"
	"time"

	"CoinScope/internal/services/synthetic"
)

// simulate regenerates the chain and developer resource documents that the
// analysis layer reads, for environments without live exchange access.
func main() {
	var (
		outDir  = flag.String("out", "resources", "output root; documents land in chain/ and developer/")
		symbols = flag.String("symbols", strings.Join(synthetic.DefaultSymbols, ","), "comma separated symbols")
		periods = flag.Int("periods", 48, "periods per document")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "rng seed, fix for reproducible documents")
	)
	flag.Parse()

	g := synthetic.NewGenerator(
		synthetic.WithSeed(*seed),
		synthetic.WithPeriods(*periods),
	)

	chainDir := filepath.Join(*outDir, "chain")
	devDir := filepath.Join(*outDir, "developer")

	n := 0
	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if err := g.WriteChain(chainDir, sym); err != nil {
			log.Fatalf("chain %s: %v", sym, err)
		}
		if err := g.WriteDev(devDir, sym); err != nil {
			log.Fatalf("developer %s: %v", sym, err)
		}
		n++
	}
	log.Printf("wrote chain+developer documents for %d symbols under %s", n, *outDir)
}

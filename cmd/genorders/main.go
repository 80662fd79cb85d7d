// genorders writes synthetic per-channel order files into a local directory
// laid out the way the ingestion pipeline expects them:
//
//	<root>/<container>/<YYYY-MM-DD>/<CHANNEL>_orders.csv
//
// Useful for exercising backfills against the fs store without real exports.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/sales"
)

// channel shapes the synthetic volume and price range per sales channel.
type channel struct {
	code     string
	rows     int
	minPrice float64
	maxPrice float64
}

var channels = []channel{
	{code: "WEB", rows: 200, minPrice: 5, maxPrice: 250},
	{code: "MOB", rows: 120, minPrice: 3, maxPrice: 120},
	{code: "PART", rows: 40, minPrice: 50, maxPrice: 1500},
}

var countries = []string{"FR", "DE", "ES", "IT", "BE", "NL", "PT", "MA"}

func main() {
	var (
		root = flag.String("root", "data", "store root directory")
		cont = flag.String("container", "sales-exports", "container name under root")
		days = flag.Int("days", 7, "number of days to generate, ending yesterday")
		seed = flag.Int64("seed", 0, "rng seed, 0 = time-based")
		dirt = flag.Float64("dirty", 0.05, "fraction of rows made invalid on purpose")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	end := time.Now().AddDate(0, 0, -1)
	total := 0
	for d := *days - 1; d >= 0; d-- {
		day := end.AddDate(0, 0, -d)
		for _, ch := range channels {
			n, err := writeFile(rng, *root, *cont, day, ch, *dirt)
			if err != nil {
				log.Fatal(err)
			}
			total += n
		}
	}
	log.Printf("generated %d rows under %s/%s (seed=%d)", total, *root, *cont, *seed)
}

func writeFile(rng *rand.Rand, root, container string, day time.Time, ch channel, dirty float64) (int, error) {
	date := day.Format(sales.DateLayout)
	dir := filepath.Join(root, container, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	path := filepath.Join(dir, ch.code+"_orders.csv")
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(sales.Columns); err != nil {
		return 0, err
	}

	// row count jitters around the channel's nominal volume
	n := ch.rows/2 + rng.Intn(ch.rows)
	for i := 0; i < n; i++ {
		rec := order(rng, date, ch, i)
		if rng.Float64() < dirty {
			corrupt(rng, rec)
		}
		if err := w.Write(rec); err != nil {
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return n, f.Close()
}

func order(rng *rand.Rand, date string, ch channel, i int) []string {
	price := ch.minPrice + rng.Float64()*(ch.maxPrice-ch.minPrice)
	status := string(sales.StatusPaid)
	if rng.Float64() < 0.12 {
		status = string(sales.StatusCancelled)
	}
	return []string{
		fmt.Sprintf("%s-%s-%04d", ch.code, date, i),
		fmt.Sprintf("C%05d", rng.Intn(40000)),
		fmt.Sprintf("P%04d", rng.Intn(2500)),
		countries[rng.Intn(len(countries))],
		date,
		strconv.Itoa(1 + rng.Intn(8)),
		fmt.Sprintf("%.2f", price),
		status,
	}
}

// corrupt degrades one field the way real exports tend to break: bad date
// separators, non-numeric quantities, locale decimal commas, odd statuses.
func corrupt(rng *rand.Rand, rec []string) {
	switch rng.Intn(4) {
	case 0:
		rec[4] = time.Now().Format("02/01/2006")
	case 1:
		rec[5] = "two"
	case 2:
		rec[6] = "1,99"
	case 3:
		rec[7] = "PENDING"
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"upgrade-service/internal/models"
	"upgrade-service/internal/service"
	"upgrade-service/internal/upgrade"
	"upgrade-service/internal/util"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type quoteOptions struct {
	catalogPath string
	productPath string
	ramID       int64
	storageID   int64
	medium      string
}

type quoteOutput struct {
	ProductID      int64                   `json:"product_id"`
	RAMOptions     []upgrade.UpgradeOption `json:"ram_options"`
	StorageOptions []upgrade.UpgradeOption `json:"storage_options"`
	Result         upgrade.Snapshot        `json:"result"`
	Notices        []string                `json:"notices,omitempty"`
}

func main() {
	if err := util.InitLogger(os.Getenv("ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &quoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a product with RAM and storage upgrades from local files",
		Long: "quote loads an upgrade catalog (CSV or JSON) and a product (JSON), " +
			"lists the upgrades the product can take and prints the priced configuration.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.catalogPath, "catalog", "", "upgrade catalog file (.csv or .json)")
	flags.StringVar(&opts.productPath, "product", "", "product file (.json)")
	flags.Int64Var(&opts.ramID, "ram", 0, "RAM option id to select")
	flags.Int64Var(&opts.storageID, "ssd", 0, "storage option id to select")
	flags.StringVar(&opts.medium, "medium", "SSD", "storage medium appended to storage labels")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

func runQuote(opts *quoteOptions, out io.Writer) error {
	logger := util.GetLogger()

	rows, err := readCatalog(opts.catalogPath)
	if err != nil {
		return err
	}
	product, err := readProduct(opts.productPath)
	if err != nil {
		return err
	}

	raw := make([]upgrade.RawOption, len(rows))
	for i, r := range rows {
		raw[i] = service.ToRawOption(r)
	}
	catalog, warnings := upgrade.LoadCatalog(raw)
	for _, w := range warnings {
		util.LogWarning(logger, w, zap.String("file", opts.catalogPath))
	}

	spec := service.ProductSpecFromModel(product, opts.medium)
	cfg := upgrade.NewConfigurator(spec, catalog, upgrade.WithWarningHandler(func(w upgrade.Warning) {
		util.LogWarning(logger, w, zap.Int64("product_id", product.ID))
	}))

	var notices []string
	if opts.ramID != 0 {
		if _, err := cfg.SelectRAM(lookup(cfg, upgrade.KindRAM, opts.ramID)); err != nil {
			notices = append(notices, err.Error())
		}
	}
	if opts.storageID != 0 {
		if _, err := cfg.SelectStorage(lookup(cfg, upgrade.KindSSD, opts.storageID)); err != nil {
			notices = append(notices, err.Error())
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(quoteOutput{
		ProductID:      product.ID,
		RAMOptions:     cfg.Options(upgrade.KindRAM),
		StorageOptions: cfg.Options(upgrade.KindSSD),
		Result:         cfg.Result(),
		Notices:        notices,
	})
}

// lookup returns the applicable option, or a placeholder the configurator
// will reject as stale.
func lookup(cfg *upgrade.Configurator, kind upgrade.Kind, id int64) upgrade.UpgradeOption {
	if o, ok := cfg.Lookup(kind, id); ok {
		return o
	}
	return upgrade.UpgradeOption{ID: id, Kind: kind}
}

func readCatalog(path string) ([]models.UpgradeOption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	var rows []models.UpgradeOption
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := gocsv.Unmarshal(f, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse catalog CSV: %w", err)
		}
	default:
		if err := json.NewDecoder(f).Decode(&rows); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	}
	return rows, nil
}

func readProduct(path string) (*models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read product: %w", err)
	}

	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	return &p, nil
}

package economy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_Shipped(t *testing.T) {
	config, err := LoadConfig(filepath.Join("..", "..", "config", "economy.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(config.Catalog) == 0 {
		t.Error("expected catalog items")
	}
	if len(config.Actions) != 4 {
		t.Errorf("len(Actions) = %d, expected 4", len(config.Actions))
	}
}

func TestParseConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_HAT_PRICE", "42")

	config, err := ParseConfig([]byte(`
catalog:
  - id: hat
    kind: cosmetic
    price: ${TEST_HAT_PRICE}
  - id: boots
    kind: avatar_part
    price: ${TEST_UNSET_PRICE:7}
`))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if config.Catalog[0].Price != 42 {
		t.Errorf("hat price = %d, expected 42", config.Catalog[0].Price)
	}
	if config.Catalog[1].Price != 7 {
		t.Errorf("boots price = %d, expected 7", config.Catalog[1].Price)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "empty item id",
			config:  Config{Catalog: []CatalogItem{{Kind: ItemCosmetic}}},
			wantErr: "empty ID",
		},
		{
			name:    "duplicate item",
			config:  Config{Catalog: []CatalogItem{{ID: "a", Kind: ItemCosmetic}, {ID: "a", Kind: ItemCosmetic}}},
			wantErr: "duplicate catalog item",
		},
		{
			name:    "unknown kind",
			config:  Config{Catalog: []CatalogItem{{ID: "a", Kind: "vehicle"}}},
			wantErr: "unknown kind",
		},
		{
			name:    "negative price",
			config:  Config{Catalog: []CatalogItem{{ID: "a", Kind: ItemCosmetic, Price: -1}}},
			wantErr: "negative price",
		},
		{
			name:    "giftable avatar part",
			config:  Config{Catalog: []CatalogItem{{ID: "a", Kind: ItemAvatarPart, Giftable: true}}},
			wantErr: "giftable",
		},
		{
			name:    "duplicate action",
			config:  Config{Actions: []ActionConfig{{ID: "x", Type: TypeTransferCoins}, {ID: "x", Type: TypeTransferCoins}}},
			wantErr: "duplicate action",
		},
		{
			name:    "action without type",
			config:  Config{Actions: []ActionConfig{{ID: "x"}}},
			wantErr: "empty type",
		},
		{
			name:   "valid",
			config: Config{Catalog: []CatalogItem{{ID: "a", Kind: ItemCosmetic, Price: 5, Giftable: true}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, expected nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, expected to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, expected not-exist", err)
	}
}

func TestActionConfig_Parameters(t *testing.T) {
	config := ActionConfig{Parameters: map[string]interface{}{
		"min_amount": 10,
		"max_amount": float64(500),
		"procedure":  "custom_proc",
		"bad":        "x",
	}}

	if got := config.GetParameterInt("min_amount", 0); got != 10 {
		t.Errorf("min_amount = %d, expected 10", got)
	}
	if got := config.GetParameterInt("max_amount", 0); got != 500 {
		t.Errorf("max_amount = %d, expected 500", got)
	}
	if got := config.GetParameterInt("bad", 3); got != 3 {
		t.Errorf("bad = %d, expected default 3", got)
	}
	if got := config.GetParameterString("procedure", ""); got != "custom_proc" {
		t.Errorf("procedure = %q, expected custom_proc", got)
	}
}

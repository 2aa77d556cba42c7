package config

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// FileStoreConfigResolver resolves per-store sync configuration from a
// TOML file with two layers: [store_defaults] applies to every store and
// [stores.<id>] overrides it. Unset keys fall through to the layer below.
type FileStoreConfigResolver struct {
	v  *viper.Viper
	mu sync.RWMutex
	// cache holds resolved configs per store id
	cache map[string]*integration.StoreConfig
}

// NewFileStoreConfigResolver loads store configuration from the named
// file (without extension), searching the same paths as Load.
func NewFileStoreConfigResolver(name string) (*FileStoreConfigResolver, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading store config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEDGERLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &FileStoreConfigResolver{
		v:     v,
		cache: make(map[string]*integration.StoreConfig),
	}, nil
}

// NewFileStoreConfigResolverFromViper wraps an existing viper instance,
// mainly for tests.
func NewFileStoreConfigResolverFromViper(v *viper.Viper) *FileStoreConfigResolver {
	return &FileStoreConfigResolver{
		v:     v,
		cache: make(map[string]*integration.StoreConfig),
	}
}

// Resolve returns the effective configuration for a store
func (r *FileStoreConfigResolver) Resolve(ctx context.Context, storeID string) (*integration.StoreConfig, error) {
	r.mu.RLock()
	if cached, ok := r.cache[storeID]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	defaults := r.layerAt("store_defaults")
	override := r.layerAt("stores." + storeID)
	cfg := integration.MergeStoreConfig(defaults, override)

	if !cfg.OrderSyncMode.IsValid() {
		return nil, fmt.Errorf("store %q: invalid order sync mode %q: %w",
			storeID, cfg.OrderSyncMode, shared.ErrInvalidInput)
	}

	r.mu.Lock()
	r.cache[storeID] = &cfg
	r.mu.Unlock()
	return &cfg, nil
}

// Invalidate drops the cached config for a store, forcing a re-read.
func (r *FileStoreConfigResolver) Invalidate(storeID string) {
	r.mu.Lock()
	delete(r.cache, storeID)
	r.mu.Unlock()
}

// layerAt reads one config layer at the given key prefix
func (r *FileStoreConfigResolver) layerAt(prefix string) integration.StoreConfigLayer {
	layer := integration.StoreConfigLayer{}
	get := func(key string) string { return prefix + "." + key }

	if r.v.IsSet(get("order_sync_mode")) {
		mode := integration.OrderSyncMode(r.v.GetString(get("order_sync_mode")))
		layer.OrderSyncMode = &mode
	}
	if r.v.IsSet(get("transfer_enabled")) {
		b := r.v.GetBool(get("transfer_enabled"))
		layer.TransferEnabled = &b
	}
	if r.v.IsSet(get("transfer_strategy")) {
		s := integration.TransferStrategy(r.v.GetString(get("transfer_strategy")))
		layer.TransferStrategy = &s
	}
	if r.v.IsSet(get("origin_warehouse_ids")) {
		layer.OriginWarehouseIDs = r.v.GetStringSlice(get("origin_warehouse_ids"))
	}
	if r.v.IsSet(get("destination_warehouse_id")) {
		s := r.v.GetString(get("destination_warehouse_id"))
		layer.DestinationWarehouseID = &s
	}
	if r.v.IsSet(get("priority_warehouse_id")) {
		s := r.v.GetString(get("priority_warehouse_id"))
		layer.PriorityWarehouseID = &s
	}
	if r.v.IsSet(get("default_warehouse_id")) {
		s := r.v.GetString(get("default_warehouse_id"))
		layer.DefaultWarehouseID = &s
	}
	if r.v.IsSet(get("apply_payment")) {
		b := r.v.GetBool(get("apply_payment"))
		layer.ApplyPayment = &b
	}
	if r.v.IsSet(get("default_bank_account_id")) {
		s := r.v.GetString(get("default_bank_account_id"))
		layer.DefaultBankAccountID = &s
	}
	if r.v.IsSet(get("invoice_enabled")) {
		b := r.v.GetBool(get("invoice_enabled"))
		layer.InvoiceEnabled = &b
	}
	if r.v.IsSet(get("resolution_id")) {
		s := r.v.GetString(get("resolution_id"))
		layer.ResolutionID = &s
	}
	if r.v.IsSet(get("cost_center_id")) {
		s := r.v.GetString(get("cost_center_id"))
		layer.CostCenterID = &s
	}
	if r.v.IsSet(get("seller_id")) {
		s := r.v.GetString(get("seller_id"))
		layer.SellerID = &s
	}
	if r.v.IsSet(get("template_id")) {
		s := r.v.GetString(get("template_id"))
		layer.TemplateID = &s
	}
	if r.v.IsSet(get("payment_method")) {
		s := r.v.GetString(get("payment_method"))
		layer.PaymentMethod = &s
	}
	if r.v.IsSet(get("observations_template")) {
		s := r.v.GetString(get("observations_template"))
		layer.ObservationsTemplate = &s
	}
	return layer
}

// Ensure FileStoreConfigResolver implements ConfigResolver
var _ integration.ConfigResolver = (*FileStoreConfigResolver)(nil)

package app

import "warehouse-ledger/internal/core"

// StockResult is the per-location stock view for one item.
type StockResult struct {
	CompanyCode string
	ItemCode    string
	Locations   []core.LocationStock
}

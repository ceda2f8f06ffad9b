// Package domain holds the banking entities served by the cache-aside layer.
//
// Every entity exposes its primary key through EntityID, accepts a key through
// SetEntityID (used by the persistence layer to address rows), and validates
// its own required fields. Money is carried as shopspring/decimal values.
package domain

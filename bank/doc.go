// Package bank wires cache-aside services for every table of the bank schema
// and adds the operations that span more than one of them: branch rosters and
// ledger movements.
package bank

package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-bankcache/domain"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// BankFixture is the seed data shared by database-backed tests.
type BankFixture struct {
	Customers []domain.Customer `json:"customers"`
	Branches  []domain.Branch   `json:"branches"`
	Accounts  []domain.Account  `json:"accounts"`
	Employees []domain.Employee `json:"employees"`
	Transfers []domain.Transfer `json:"transfers"`
}

// Bank decodes the embedded seed data. Each call returns fresh slices.
func Bank(t testing.TB) BankFixture {
	t.Helper()

	var fixture BankFixture
	if err := json.Unmarshal(bankSeed, &fixture); err != nil {
		t.Fatalf("failed to decode bank seed: %v", err)
	}
	return fixture
}

package domain

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Entity is any persisted record identified by an integer key that is unique
// within its type.
type Entity interface {
	EntityID() int
}

// Validatable is implemented by entities that check their own fields before
// being staged for insert or update.
type Validatable interface {
	Validate() error
}

// Account is a customer's account holding a balance.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a" json:"-" msgpack:"-"`

	AccountID  int             `bun:"account_id,pk,autoincrement" json:"account_id"`
	Type       string          `bun:"type,notnull" json:"type"`
	Balance    decimal.Decimal `bun:"balance,type:decimal(18,2),notnull" json:"balance"`
	CustomerID int             `bun:"customer_id,notnull" json:"customer_id"`
}

func (a Account) EntityID() int       { return a.AccountID }
func (a *Account) SetEntityID(id int) { a.AccountID = id }

// Validate checks required fields and rejects negative balances.
func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Type, validation.Required, validation.Length(1, 32)),
		validation.Field(&a.Balance, validation.By(nonNegative)),
		validation.Field(&a.CustomerID, validation.Required, validation.Min(1)),
	)
}

// Branch is a physical bank branch.
type Branch struct {
	bun.BaseModel `bun:"table:branches,alias:b" json:"-" msgpack:"-"`

	BranchID   int    `bun:"branch_id,pk,autoincrement" json:"branch_id"`
	BranchName string `bun:"branch_name,notnull" json:"branch_name"`
	Location   string `bun:"location,notnull" json:"location"`
}

func (b Branch) EntityID() int       { return b.BranchID }
func (b *Branch) SetEntityID(id int) { b.BranchID = id }

func (b Branch) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.BranchName, validation.Required, validation.Length(1, 128)),
		validation.Field(&b.Location, validation.Required),
	)
}

// Customer owns accounts, cards and loans.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c" json:"-" msgpack:"-"`

	CustomerID int    `bun:"customer_id,pk,autoincrement" json:"customer_id"`
	Name       string `bun:"name,notnull" json:"name"`
	Address    string `bun:"address,notnull" json:"address"`
	Phone      string `bun:"phone,notnull" json:"phone"`
	Email      string `bun:"email,notnull" json:"email"`
}

func (c Customer) EntityID() int       { return c.CustomerID }
func (c *Customer) SetEntityID(id int) { c.CustomerID = id }

func (c Customer) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Address, validation.Required),
		validation.Field(&c.Phone, validation.Required, validation.Length(5, 20)),
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
	)
}

// Employee works at a branch.
type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:e" json:"-" msgpack:"-"`

	EmployeeID int    `bun:"employee_id,pk,autoincrement" json:"employee_id"`
	Name       string `bun:"name,notnull" json:"name"`
	Position   string `bun:"position,notnull" json:"position"`
	BranchID   int    `bun:"branch_id,notnull" json:"branch_id"`
}

func (e Employee) EntityID() int       { return e.EmployeeID }
func (e *Employee) SetEntityID(id int) { e.EmployeeID = id }

func (e Employee) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Position, validation.Required),
		validation.Field(&e.BranchID, validation.Required, validation.Min(1)),
	)
}

// Transfer records money moved into or out of an account. Positive amounts
// are deposits, negative amounts withdrawals.
type Transfer struct {
	bun.BaseModel `bun:"table:transfers,alias:t" json:"-" msgpack:"-"`

	TransferID int             `bun:"transfer_id,pk,autoincrement" json:"transfer_id"`
	Amount     decimal.Decimal `bun:"amount,type:decimal(18,2),notnull" json:"amount"`
	Date       time.Time       `bun:"date,notnull" json:"date"`
	AccountID  int             `bun:"account_id,notnull" json:"account_id"`
}

func (t Transfer) EntityID() int       { return t.TransferID }
func (t *Transfer) SetEntityID(id int) { t.TransferID = id }

func (t Transfer) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Amount, validation.By(nonZero)),
		validation.Field(&t.Date, validation.Required),
		validation.Field(&t.AccountID, validation.Required, validation.Min(1)),
	)
}

// Card is a payment card issued to a customer.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:cd" json:"-" msgpack:"-"`

	CardNumber int       `bun:"card_number,pk,autoincrement" json:"card_number"`
	Type       string    `bun:"type,notnull" json:"type"`
	ExpiryDate time.Time `bun:"expiry_date,notnull" json:"expiry_date"`
	CustomerID int       `bun:"customer_id,notnull" json:"customer_id"`
}

func (c Card) EntityID() int       { return c.CardNumber }
func (c *Card) SetEntityID(id int) { c.CardNumber = id }

func (c Card) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required),
		validation.Field(&c.ExpiryDate, validation.Required),
		validation.Field(&c.CustomerID, validation.Required, validation.Min(1)),
	)
}

// Loan is money lent to a customer.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l" json:"-" msgpack:"-"`

	LoanID       int             `bun:"loan_id,pk,autoincrement" json:"loan_id"`
	Amount       decimal.Decimal `bun:"amount,type:decimal(18,2),notnull" json:"amount"`
	InterestRate decimal.Decimal `bun:"interest_rate,type:decimal(9,4),notnull" json:"interest_rate"`
	CustomerID   int             `bun:"customer_id,notnull" json:"customer_id"`
}

func (l Loan) EntityID() int       { return l.LoanID }
func (l *Loan) SetEntityID(id int) { l.LoanID = id }

func (l Loan) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Amount, validation.By(positive)),
		validation.Field(&l.InterestRate, validation.By(nonNegative)),
		validation.Field(&l.CustomerID, validation.Required, validation.Min(1)),
	)
}

// BranchRoster is a branch name with the names of the employees working there.
type BranchRoster struct {
	BranchID   int      `json:"branch_id"`
	BranchName string   `json:"branch_name"`
	Employees  []string `json:"employees"`
}

func nonNegative(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func positive(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func nonZero(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if d.IsZero() {
		return errors.New("must not be zero")
	}
	return nil
}

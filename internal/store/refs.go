package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mvfarias/agrobook/internal/ledger"
)

// Reference entities are plain dimension rows. Their CRUD is
// deliberately simple; the interesting guarantees all live on the
// ledger table.

// CreateProperty inserts a rural property and returns its id.
func (s *Store) CreateProperty(p *ledger.Property) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO properties
		(code, name, country, currency, itr_number, state_registr,
		 address, city, state, postal_code, total_area, used_area)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Code, p.Name, p.Country, p.Currency, p.ITRNumber, p.StateRegistr,
		p.Address, p.City, p.State, p.PostalCode,
		p.TotalArea.String(), p.UsedArea.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("create property: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create property: last insert id: %w", err)
	}
	p.ID = id
	return id, nil
}

// UpdateProperty rewrites a property row.
func (s *Store) UpdateProperty(p *ledger.Property) error {
	_, err := s.db.Exec(`
		UPDATE properties SET
			code = ?, name = ?, country = ?, currency = ?, itr_number = ?,
			state_registr = ?, address = ?, city = ?, state = ?,
			postal_code = ?, total_area = ?, used_area = ?
		WHERE id = ?
	`,
		p.Code, p.Name, p.Country, p.Currency, p.ITRNumber, p.StateRegistr,
		p.Address, p.City, p.State, p.PostalCode,
		p.TotalArea.String(), p.UsedArea.String(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update property %d: %w", p.ID, err)
	}
	return nil
}

// DeleteProperty removes a property row.
func (s *Store) DeleteProperty(id int64) error {
	if _, err := s.db.Exec("DELETE FROM properties WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete property %d: %w", id, err)
	}
	return nil
}

// GetProperty fetches one property by id.
func (s *Store) GetProperty(id int64) (ledger.Property, error) {
	var (
		p                   ledger.Property
		totalArea, usedArea string
	)
	err := s.db.QueryRow(`
		SELECT id, code, name, country, currency, itr_number, state_registr,
		       address, city, state, postal_code, total_area, used_area
		FROM properties WHERE id = ?
	`, id).Scan(
		&p.ID, &p.Code, &p.Name, &p.Country, &p.Currency, &p.ITRNumber,
		&p.StateRegistr, &p.Address, &p.City, &p.State, &p.PostalCode,
		&totalArea, &usedArea,
	)
	if err != nil {
		return ledger.Property{}, err
	}
	if p.TotalArea, err = parseAmount(totalArea); err != nil {
		return ledger.Property{}, fmt.Errorf("property %d total_area: %w", id, err)
	}
	if p.UsedArea, err = parseAmount(usedArea); err != nil {
		return ledger.Property{}, fmt.Errorf("property %d used_area: %w", id, err)
	}
	return p, nil
}

// ListProperties returns all properties ordered by code.
func (s *Store) ListProperties() ([]ledger.Property, error) {
	rows, err := s.db.Query("SELECT id FROM properties ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var out []ledger.Property
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		p, err := s.GetProperty(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateAccount inserts a bank account and returns its id.
func (s *Store) CreateAccount(a *ledger.Account) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO accounts (code, bank_code, bank_name, branch, number, opening_balance)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		a.Code, a.BankCode, a.BankName, a.Branch, a.Number, a.OpeningBalance.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create account: last insert id: %w", err)
	}
	a.ID = id
	return id, nil
}

// UpdateAccount rewrites an account row.
func (s *Store) UpdateAccount(a *ledger.Account) error {
	_, err := s.db.Exec(`
		UPDATE accounts SET code = ?, bank_code = ?, bank_name = ?, branch = ?,
			number = ?, opening_balance = ?
		WHERE id = ?
	`,
		a.Code, a.BankCode, a.BankName, a.Branch, a.Number,
		a.OpeningBalance.String(), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account %d: %w", a.ID, err)
	}
	return nil
}

// DeleteAccount removes an account row.
func (s *Store) DeleteAccount(id int64) error {
	if _, err := s.db.Exec("DELETE FROM accounts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return nil
}

// GetAccount fetches one account by id.
func (s *Store) GetAccount(id int64) (ledger.Account, error) {
	var (
		a       ledger.Account
		opening string
	)
	err := s.db.QueryRow(`
		SELECT id, code, bank_code, bank_name, branch, number, opening_balance
		FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Code, &a.BankCode, &a.BankName, &a.Branch, &a.Number, &opening)
	if err != nil {
		return ledger.Account{}, err
	}
	if a.OpeningBalance, err = parseAmount(opening); err != nil {
		return ledger.Account{}, fmt.Errorf("account %d opening_balance: %w", id, err)
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by code.
func (s *Store) ListAccounts() ([]ledger.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, code, bank_code, bank_name, branch, number, opening_balance
		FROM accounts ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var (
			a       ledger.Account
			opening string
		)
		if err := rows.Scan(&a.ID, &a.Code, &a.BankCode, &a.BankName, &a.Branch, &a.Number, &opening); err != nil {
			return nil, err
		}
		if a.OpeningBalance, err = parseAmount(opening); err != nil {
			return nil, fmt.Errorf("account %d opening_balance: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateCounterparty inserts a counterparty and returns its id. The
// tax identifier is stored digits-only.
func (s *Store) CreateCounterparty(c *ledger.Counterparty) (int64, error) {
	return createCounterparty(s.db, c)
}

func createCounterparty(x execer, c *ledger.Counterparty) (int64, error) {
	res, err := x.Exec(
		"INSERT INTO counterparties (tax_id, name, kind) VALUES (?, ?, ?)",
		ledger.OnlyDigits(c.TaxID), c.Name, int(c.Kind),
	)
	if err != nil {
		return 0, fmt.Errorf("create counterparty: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create counterparty: last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

// UpsertCounterparty inserts or updates a counterparty keyed by its
// tax identifier (the business key) and returns its id.
func (s *Store) UpsertCounterparty(c *ledger.Counterparty) (int64, error) {
	taxID := ledger.OnlyDigits(c.TaxID)
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM counterparties WHERE tax_id = ?", taxID,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		c.TaxID = taxID
		return createCounterparty(s.db, c)
	case err != nil:
		return 0, fmt.Errorf("upsert counterparty: %w", err)
	}
	_, err = s.db.Exec(
		"UPDATE counterparties SET name = ?, kind = ? WHERE id = ?",
		c.Name, int(c.Kind), id,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert counterparty %d: %w", id, err)
	}
	c.ID = id
	return id, nil
}

// DeleteCounterparty removes a counterparty row.
func (s *Store) DeleteCounterparty(id int64) error {
	if _, err := s.db.Exec("DELETE FROM counterparties WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete counterparty %d: %w", id, err)
	}
	return nil
}

// GetCounterparty fetches one counterparty by id.
func (s *Store) GetCounterparty(id int64) (ledger.Counterparty, error) {
	var (
		c    ledger.Counterparty
		kind int
	)
	err := s.db.QueryRow(
		"SELECT id, tax_id, name, kind FROM counterparties WHERE id = ?", id,
	).Scan(&c.ID, &c.TaxID, &c.Name, &kind)
	if err != nil {
		return ledger.Counterparty{}, err
	}
	c.Kind = ledger.CounterpartyKind(kind)
	return c, nil
}

// CounterpartyByTaxID resolves a counterparty by the digits of its tax
// identifier. Returns sql.ErrNoRows when absent.
func (s *Store) CounterpartyByTaxID(taxID string) (ledger.Counterparty, error) {
	var (
		c    ledger.Counterparty
		kind int
	)
	err := s.db.QueryRow(
		"SELECT id, tax_id, name, kind FROM counterparties WHERE tax_id = ?",
		ledger.OnlyDigits(taxID),
	).Scan(&c.ID, &c.TaxID, &c.Name, &kind)
	if err != nil {
		return ledger.Counterparty{}, err
	}
	c.Kind = ledger.CounterpartyKind(kind)
	return c, nil
}

// SearchCounterparties returns counterparties whose folded name
// contains the folded query, ordered by name. Folding strips
// diacritics so "São João" matches "sao joao".
func (s *Store) SearchCounterparties(query string) ([]ledger.Counterparty, error) {
	rows, err := s.db.Query("SELECT id, tax_id, name, kind FROM counterparties ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("search counterparties: %w", err)
	}
	defer rows.Close()

	needle := ledger.NormalizeName(query)
	var out []ledger.Counterparty
	for rows.Next() {
		var (
			c    ledger.Counterparty
			kind int
		)
		if err := rows.Scan(&c.ID, &c.TaxID, &c.Name, &kind); err != nil {
			return nil, err
		}
		c.Kind = ledger.CounterpartyKind(kind)
		if needle == "" || strings.Contains(ledger.NormalizeName(c.Name), needle) {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

// UpsertProfileParams inserts or replaces the declaration parameters
// for a profile, keyed by profile name.
func (s *Store) UpsertProfileParams(p ledger.ProfileParams) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO profile_params
		(profile, version, period_start, special_sit, tax_id, name, street,
		 number, complement, district, state, city_code, postal_code, phone, email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.Profile, p.Version, p.PeriodStart, p.SpecialSit, p.TaxID, p.Name,
		p.Street, p.Number, p.Complement, p.District, p.State, p.CityCode,
		p.PostalCode, p.Phone, p.Email,
	)
	if err != nil {
		return fmt.Errorf("upsert profile params %q: %w", p.Profile, err)
	}
	return nil
}

// GetProfileParams fetches the declaration parameters for a profile.
// Returns sql.ErrNoRows when the profile has none saved.
func (s *Store) GetProfileParams(profile string) (ledger.ProfileParams, error) {
	var p ledger.ProfileParams
	err := s.db.QueryRow(`
		SELECT profile, version, period_start, special_sit, tax_id, name, street,
		       number, complement, district, state, city_code, postal_code, phone, email
		FROM profile_params WHERE profile = ?
	`, profile).Scan(
		&p.Profile, &p.Version, &p.PeriodStart, &p.SpecialSit, &p.TaxID, &p.Name,
		&p.Street, &p.Number, &p.Complement, &p.District, &p.State, &p.CityCode,
		&p.PostalCode, &p.Phone, &p.Email,
	)
	if err != nil {
		return ledger.ProfileParams{}, err
	}
	return p, nil
}

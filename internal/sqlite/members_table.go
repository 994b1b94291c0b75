package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Compile-time interface check: membersTable must implement MemberTable.
var _ types.MemberTable = (*membersTable)(nil)

// membersTable implements the member catalog.
type membersTable struct {
	backend *Backend
}

// Add registers a member. A blank email or phone is stored as NULL; a
// repeated email is rejected with ErrDuplicateEmail.
func (mt *membersTable) Add(nm types.NewMember) (*types.Member, error) {
	if err := nm.Normalize(); err != nil {
		return nil, err
	}

	var member *types.Member
	err := mt.backend.withTx(func(tx *sqlx.Tx) error {
		if email := nm.EmailValue(); email != nil {
			var n int
			if err := tx.Get(&n, "SELECT COUNT(*) FROM members WHERE email = ?", *email); err != nil {
				return fmt.Errorf("checking email: %w", err)
			}
			if n > 0 {
				return types.ErrDuplicateEmail
			}
		}

		res, err := tx.Exec(
			"INSERT INTO members (name, email, phone) VALUES (?, ?, ?)",
			nm.Name, nm.EmailValue(), nm.PhoneValue(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return types.ErrDuplicateEmail
			}
			return fmt.Errorf("inserting member: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading member id: %w", err)
		}
		member, err = getMember(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] member %d added: %q", member.ID, member.Name)
	return member, nil
}

// Get retrieves a member by ID.
func (mt *membersTable) Get(id int64) (*types.Member, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	db, err := mt.backend.handle()
	if err != nil {
		return nil, err
	}
	return getMember(db, id)
}

// List returns all members in natural table order.
func (mt *membersTable) List() ([]types.Member, error) {
	db, err := mt.backend.handle()
	if err != nil {
		return nil, err
	}
	rq, err := render(selectAll(tableMembers, memberColumns))
	if err != nil {
		return nil, err
	}
	members := []types.Member{}
	if err := db.Select(&members, rq.sql, rq.args...); err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	return members, nil
}

// ActiveLoans counts the unreturned loans of a member.
func (mt *membersTable) ActiveLoans(id int64) (int, error) {
	if id <= 0 {
		return 0, types.ErrInvalidID
	}
	db, err := mt.backend.handle()
	if err != nil {
		return 0, err
	}
	return activeLoans(db, tableMembers, colMemberID, id)
}

// Delete removes a member with no active loans.
func (mt *membersTable) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	err := mt.backend.withTx(func(tx *sqlx.Tx) error {
		return deleteGuarded(tx, tableMembers, colMemberID, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[DEBUG] member %d deleted", id)
	return nil
}

func getMember(q sqlx.Queryer, id int64) (*types.Member, error) {
	rq, err := render(selectByID(tableMembers, memberColumns, id))
	if err != nil {
		return nil, err
	}
	var member types.Member
	if err := sqlx.Get(q, &member, rq.sql, rq.args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting member %d: %w", id, err)
	}
	return &member, nil
}

package postgres

import (
	"time"

	"github.com/eagleapps/user-service/internal/domain/entity"
)

// UserRow is one flat row contributing to a user aggregate. The scalar
// columns describe the parent; the pointer columns carry an optional role
// or address contribution (nil when the row has none, e.g. the null side of
// an outer join).
type UserRow struct {
	ID                    string
	Username              string
	Fullname              string
	DOB                   string
	Email                 string
	Mobile                int64
	Active                bool
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
	ProfilePic            []byte
	CreatedAt             time.Time

	RoleID    *int64
	RoleName  *string
	AddrKey   *string
	AddrValue *string
}

// Assembler folds flat rows into user aggregates, one per distinct parent
// id in first-seen order. Joining the two child tables in one query fans
// the result out to a cross product, so every contribution is deduplicated:
// scalar fields come from the first row seen for an id, a role counts once
// per role id, an address once per key.
type Assembler struct {
	order     []string
	byID      map[string]*entity.User
	seenRoles map[string]map[int64]struct{}
	seenAddrs map[string]map[string]struct{}
}

func NewAssembler() *Assembler {
	return &Assembler{
		byID:      make(map[string]*entity.User),
		seenRoles: make(map[string]map[int64]struct{}),
		seenAddrs: make(map[string]map[string]struct{}),
	}
}

// Add consumes one joined row: it materialises the aggregate on first sight
// of the parent id and attaches whatever child contribution the row carries.
func (a *Assembler) Add(row UserRow) {
	if _, ok := a.byID[row.ID]; !ok {
		a.order = append(a.order, row.ID)
		a.byID[row.ID] = &entity.User{
			ID:                    row.ID,
			Username:              row.Username,
			Fullname:              row.Fullname,
			DOB:                   row.DOB,
			Email:                 row.Email,
			Mobile:                row.Mobile,
			Active:                row.Active,
			AccountNonExpired:     row.AccountNonExpired,
			AccountNonLocked:      row.AccountNonLocked,
			CredentialsNonExpired: row.CredentialsNonExpired,
			ProfilePic:            row.ProfilePic,
			Roles:                 []entity.Role{},
			Addresses:             map[string]string{},
			CreatedAt:             row.CreatedAt,
		}
		a.seenRoles[row.ID] = make(map[int64]struct{})
		a.seenAddrs[row.ID] = make(map[string]struct{})
	}
	if row.RoleID != nil && row.RoleName != nil {
		a.AttachRole(row.ID, *row.RoleID, *row.RoleName)
	}
	if row.AddrKey != nil && row.AddrValue != nil {
		a.AttachAddress(row.ID, *row.AddrKey, *row.AddrValue)
	}
}

// AttachRole records a role for an already-seen parent, once per role id.
// Contributions for unknown parents are dropped rather than fabricating an
// aggregate with empty scalars.
func (a *Assembler) AttachRole(userID string, roleID int64, name string) {
	u, ok := a.byID[userID]
	if !ok {
		return
	}
	if _, dup := a.seenRoles[userID][roleID]; dup {
		return
	}
	a.seenRoles[userID][roleID] = struct{}{}
	u.Roles = append(u.Roles, entity.Role{ID: roleID, Name: name})
}

// AttachAddress records an address for an already-seen parent, once per key.
func (a *Assembler) AttachAddress(userID, key, value string) {
	u, ok := a.byID[userID]
	if !ok {
		return
	}
	if _, dup := a.seenAddrs[userID][key]; dup {
		return
	}
	a.seenAddrs[userID][key] = struct{}{}
	u.Addresses[key] = value
}

// Users returns the assembled aggregates in first-seen order.
func (a *Assembler) Users() []*entity.User {
	out := make([]*entity.User, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}

package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// Objects and actions used by the policy table.
const (
	ObjectTeam         = "team"
	ObjectMember       = "member"
	ObjectAthlete      = "athlete"
	ObjectRegistration = "registration"
	ObjectTransfer     = "transfer"

	ActionRead    = "read"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Enforcer wraps casbin with the seeded team-role policy set.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer builds a casbin enforcer backed by the application database
// and seeds the role policies. Seeding is idempotent.
func NewEnforcer(db *gorm.DB) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", "casbin_rules")
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	out := &Enforcer{e: enforcer}
	if err := out.seed(); err != nil {
		return nil, fmt.Errorf("casbin seed: %w", err)
	}
	return out, nil
}

// seed installs the role hierarchy and the per-role object/action grants.
func (a *Enforcer) seed() error {
	// OWNER inherits ADMIN inherits MEMBER.
	links := [][2]string{
		{"OWNER", "ADMIN"},
		{"ADMIN", "MEMBER"},
	}
	for _, l := range links {
		if _, err := a.e.AddGroupingPolicy(l[0], l[1]); err != nil {
			return err
		}
	}

	policies := [][3]string{
		{"MEMBER", ObjectTeam, ActionRead},
		{"MEMBER", ObjectMember, ActionRead},
		{"MEMBER", ObjectAthlete, ActionRead},

		{"ADMIN", ObjectTeam, ActionUpdate},
		{"ADMIN", ObjectMember, ActionUpdate},
		{"ADMIN", ObjectMember, ActionDelete},
		{"ADMIN", ObjectAthlete, ActionCreate},
		{"ADMIN", ObjectAthlete, ActionUpdate},
		{"ADMIN", ObjectAthlete, ActionDelete},
		{"ADMIN", ObjectRegistration, ActionRead},
		{"ADMIN", ObjectRegistration, ActionApprove},
		{"ADMIN", ObjectRegistration, ActionReject},

		{"OWNER", ObjectTeam, ActionDelete},
		{"OWNER", ObjectTransfer, ActionCreate},
		{"OWNER", ObjectTransfer, ActionRead},
		{"OWNER", ObjectTransfer, ActionDelete},
	}
	for _, p := range policies {
		if _, err := a.e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	return a.e.SavePolicy()
}

// AuthorizeAction reports whether role may perform action on object.
func (a *Enforcer) AuthorizeAction(role, object, action string) (bool, error) {
	if role == "" {
		return false, nil
	}
	return a.e.Enforce(role, object, action)
}

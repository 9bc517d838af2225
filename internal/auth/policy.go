package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Authorizer decides which roles may act on the back-office resources.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicy(RoleAdmin, "*", "*"); err != nil {
		return nil, fmt.Errorf("add admin policy: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func RoleOf(u *domain.User) string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

func (a *Authorizer) Allowed(u *domain.User, obj, act string) (bool, error) {
	ok, err := a.enforcer.Enforce(RoleOf(u), obj, act)
	if err != nil {
		return false, fmt.Errorf("enforce %s %s: %w", obj, act, err)
	}
	return ok, nil
}

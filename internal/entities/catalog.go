package entities

import (
	"strconv"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

const (
	Branches    = "branches"
	Customers   = "customers"
	Roles       = "roles"
	Permissions = "permissions"
	Users       = "users"
)

func init() {
	Register(Definition{
		Name:        Branches,
		Label:       "Branch",
		Routes:      []string{"/system/branches", "/branches"},
		ListPath:    "/branches",
		IDField:     "branchId",
		PageBase:    0,
		DefaultSort: "name",
		Columns: []Column{
			{Key: "name", Title: "Name", Width: 28},
			{Key: "address", Title: "Address", Width: 36},
			{Key: "phone", Title: "Phone", Width: 18},
		},
		Form: func() any { return &BranchForm{} },
	})

	Register(Definition{
		Name:        Customers,
		Label:       "Customer",
		Routes:      []string{"/customers"},
		ListPath:    "/customers",
		IDField:     "id",
		PageBase:    1,
		DefaultSort: "name",
		Columns: []Column{
			{Key: "name", Title: "Name", Width: 28},
			{Key: "notes", Title: "Notes", Width: 36},
			{Key: "phone", Title: "Phone", Width: 18},
		},
		Form: func() any { return &CustomerForm{} },
	})

	Register(Definition{
		Name:        Roles,
		Label:       "Role",
		Routes:      []string{"/user-management/roles"},
		ListPath:    "/admin/roles",
		SelectPath:  "/admin/roles",
		IDField:     "roleId",
		PageBase:    1,
		DefaultSort: "name",
		Columns: []Column{
			{Key: "name", Title: "Name", Width: 24},
			{Key: "description", Title: "Description", Width: 40},
			{Key: "isDefault", Title: "Default", Width: 8},
		},
		Form:      func() any { return &RoleForm{} },
		Translate: translateRole,
		Seed:      seedRole,
		Actions:   map[string]string{"default": "/default"},
	})

	Register(Definition{
		Name:        Permissions,
		Label:       "Permission",
		Routes:      []string{"/user-management/permissions"},
		ListPath:    "/admin/permissions/paginated",
		CreatePath:  "/admin/permissions",
		ItemPath:    "/admin/permissions",
		SelectPath:  "/admin/permissions",
		IDField:     "id",
		PageBase:    0,
		SizeParam:   "size",
		DefaultSort: "name",
		Columns: []Column{
			{Key: "name", Title: "Name", Width: 28},
			{Key: "slug", Title: "Slug", Width: 28},
			{Key: "description", Title: "Description", Width: 36},
		},
		Form: func() any { return &PermissionForm{} },
	})

	Register(Definition{
		Name:        Users,
		Label:       "User",
		Routes:      []string{"/user-management/users"},
		ListPath:    "/users",
		ItemPath:    "/admin/users",
		IDField:     "userId",
		PageBase:    1,
		Filters:     []string{"status", "roleId"},
		DefaultSort: "name",
		Columns: []Column{
			{Key: "name", Title: "Name", Width: 24},
			{Key: "email", Title: "Email", Width: 32},
			{Key: "username", Title: "Username", Width: 18},
			{Key: "role", Title: "Role", Width: 16},
		},
		Form:      func() any { return &UserForm{} },
		Translate: translateUser,
		Seed:      seedUser,
		Actions:   map[string]string{"restore": "/restore"},
	})
}

// translateRole turns the permissions id list into numeric permissionIds.
func translateRole(in map[string]any) map[string]any {
	out := cloneMap(in)
	raw, ok := out["permissions"]
	if !ok {
		return out
	}
	delete(out, "permissions")
	ids := []int64{}
	for _, v := range toSlice(raw) {
		if n, err := strconv.ParseInt(domain.IDString(v), 10, 64); err == nil {
			ids = append(ids, n)
		}
	}
	out["permissionIds"] = ids
	return out
}

// translateUser turns a single roleId into a singleton roleIds list.
func translateUser(in map[string]any) map[string]any {
	out := cloneMap(in)
	raw, ok := out["roleId"]
	if !ok {
		return out
	}
	delete(out, "roleId")
	if n, err := strconv.ParseInt(domain.IDString(raw), 10, 64); err == nil {
		out["roleIds"] = []int64{n}
	}
	return out
}

func seedRole(rec domain.Record) map[string]any {
	draft := map[string]any{
		"name":        rec.String("name"),
		"description": rec.String("description"),
	}
	perms := []string{}
	for _, p := range toSlice(rec["permissions"]) {
		if m, ok := p.(map[string]any); ok {
			if id := permissionRef(m); id != "" {
				perms = append(perms, id)
			}
			continue
		}
		if id := domain.IDString(p); id != "" {
			perms = append(perms, id)
		}
	}
	draft["permissions"] = perms
	return draft
}

// permissionRef reads a permission id from either a permission or a role-permission link.
func permissionRef(m map[string]any) string {
	if id := domain.IDString(m["permissionId"]); id != "" {
		return id
	}
	return domain.IDString(m["id"])
}

func seedUser(rec domain.Record) map[string]any {
	draft := map[string]any{
		"name":     rec.String("name"),
		"email":    rec.String("email"),
		"username": rec.String("username"),
	}
	roleID := domain.IDString(rec["roleId"])
	if roleID == "" {
		if role, ok := rec["role"].(map[string]any); ok {
			roleID = domain.IDString(role["roleId"])
			if roleID == "" {
				roleID = domain.IDString(role["id"])
			}
		}
	}
	draft["roleId"] = roleID
	return draft
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case IDList:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

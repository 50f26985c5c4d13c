// Package access holds the role-based permission rules. Every rule is an
// explicit set of roles; roles are never compared by rank.
package access

import (
	"strings"

	"github.com/Aghostraa/abcr-deployment-v2/pkg/models"
)

type Action string

const (
	ViewClub          Action = "view_club"
	ViewTasks         Action = "view_tasks"
	CreateTask        Action = "create_task"
	ManageProjects    Action = "manage_projects"
	ManageEvents      Action = "manage_events"
	AmplifyTask       Action = "amplify_task"
	ManageUsers       Action = "manage_users"
	ApplyTask         Action = "apply_task"
	ApproveTask       Action = "approve_task"
	ApproveAttendance Action = "approve_attendance"
	RegisterEvent     Action = "register_event"
	CompleteRecurring Action = "complete_recurring"
	WeeklyCheckin     Action = "weekly_checkin"
	ManageRecurring   Action = "manage_recurring"
)

type roleSet map[models.Role]struct{}

func set(roles ...models.Role) roleSet {
	s := make(roleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

var (
	everyone = set(models.RoleVisitor, models.RoleMember, models.RoleManager, models.RoleAdmin)
	members  = set(models.RoleMember, models.RoleManager, models.RoleAdmin)
	managers = set(models.RoleManager, models.RoleAdmin)
	admins   = set(models.RoleAdmin)
)

var rules = map[Action]roleSet{
	ViewClub:          everyone,
	ViewTasks:         members,
	CreateTask:        managers,
	ManageProjects:    managers,
	ManageEvents:      managers,
	AmplifyTask:       managers,
	ManageUsers:       admins, // an admin still cannot change their own role
	ApplyTask:         members,
	ApproveTask:       managers,
	ApproveAttendance: managers,
	RegisterEvent:     members,
	CompleteRecurring: members,
	WeeklyCheckin:     members,
	ManageRecurring:   managers,
}

// Allowed reports whether role may perform action. Unknown actions and roles
// are denied.
func Allowed(role models.Role, action Action) bool {
	s, ok := rules[action]
	if !ok {
		return false
	}
	_, ok = s[role]
	return ok
}

// CanMarkDone reports whether userID may mark the task done: only its
// assignee can, whatever their role.
func CanMarkDone(userID string, t *models.Task) bool {
	return t != nil && userID != "" && t.AssignedTo(userID)
}

type routeRule struct {
	prefix string
	roles  roleSet
}

var routeRules = []routeRule{
	{"/manager", managers},
	{"/member", members},
	{"/admin", admins},
	{"/tasks", members},
	{"/teams", members},
}

var publicPaths = []string{
	"/login",
	"/impressum",
	"/unauthorized",
	"/health",
	"/version",
	"/api/login",
	"/api/set-intended-event",
	"/api/get-intended-event",
}

var publicPrefixes = []string{
	"/attendance/",
	"/api/auth/",
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RequiredRoles returns the roles allowed on a guarded page path and false when
// no rule covers it.
func RequiredRoles(path string) ([]models.Role, bool) {
	for _, r := range routeRules {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			out := make([]models.Role, 0, len(r.roles))
			for _, role := range models.Roles {
				if _, ok := r.roles[role]; ok {
					out = append(out, role)
				}
			}
			return out, true
		}
	}
	return nil, false
}

// RouteAllowed applies RequiredRoles; paths without a rule are allowed.
func RouteAllowed(path string, role models.Role) bool {
	roles, ok := RequiredRoles(path)
	if !ok {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

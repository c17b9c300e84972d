package rbac

// Role constants
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Permission constants
const (
	PermUseAgents       = "use_agents"
	PermManageCampaigns = "manage_campaigns"
	PermManageClients   = "manage_clients"
	PermViewCampaigns   = "view_campaigns"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermUseAgents, PermManageCampaigns, PermManageClients, PermViewCampaigns,
	},
	RoleStaff: {
		PermViewCampaigns,
		// Staff CANNOT talk to agents or change campaigns
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

package auth

// Permission names checked by the API handlers. Wishlist capabilities
// plus read access to the authorization catalog itself.
const (
	PermWishCreate = "wish:create"
	PermWishRead   = "wish:read"
	PermWishUpdate = "wish:update"
	PermWishDelete = "wish:delete"

	PermGroupRead      = "group:read"
	PermRoleRead       = "role:read"
	PermPermissionRead = "permission:read"
)

// BuiltinPermissions is ensured in storage at startup so fresh
// deployments can assemble roles without manual seeding.
var BuiltinPermissions = []Permission{
	{Name: PermWishCreate},
	{Name: PermWishRead},
	{Name: PermWishUpdate},
	{Name: PermWishDelete},
	{Name: PermGroupRead},
	{Name: PermRoleRead},
	{Name: PermPermissionRead},
}

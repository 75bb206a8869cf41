package model

// Role codes carried in operator tokens
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// roleRank orders roles so a higher role passes every check of a lower one.
var roleRank = map[string]int{
	RoleStaff:   1,
	RoleManager: 2,
	RoleAdmin:   3,
}

func IsValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleAllows reports whether have satisfies a requirement of need.
func RoleAllows(have, need string) bool {
	h, ok := roleRank[have]
	if !ok {
		return false
	}
	return h >= roleRank[need]
}

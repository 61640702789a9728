package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cleancity/waste-collection-api/models"
)

// Operation names a guarded API operation
type Operation string

// The guarded operations. Read-only bin endpoints are open and never
// reach the authorization table.
const (
	OpBinCreate Operation = "bin.create"
	OpBinUpdate Operation = "bin.update"
	OpBinDelete Operation = "bin.delete"

	OpCollectionList   Operation = "collection.list"
	OpCollectionCreate Operation = "collection.create"

	OpRouteList         Operation = "route.list"
	OpRouteGet          Operation = "route.get"
	OpRouteCreate       Operation = "route.create"
	OpRouteUpdateStatus Operation = "route.update-status"
	OpRouteDelete       Operation = "route.delete"

	OpUserList   Operation = "user.list"
	OpUserGet    Operation = "user.get"
	OpUserUpdate Operation = "user.update"
	OpUserDelete Operation = "user.delete"

	OpComplaintCreate       Operation = "complaint.create"
	OpComplaintListMine     Operation = "complaint.list-mine"
	OpComplaintListAll      Operation = "complaint.list-all"
	OpComplaintUpdateStatus Operation = "complaint.update-status"

	OpNotificationList Operation = "notification.list"
	OpNotificationRead Operation = "notification.read"

	OpUploadSignature Operation = "upload.signature"
)

var anyRole = []models.Role{models.RoleAdmin, models.RoleDriver, models.RoleCitizen}

// operationRoles is the authorization table: operation to allowed roles.
// Self-scoped rules (own account, assigned route, own complaints) are
// enforced in the handlers on top of this table.
var operationRoles = map[Operation][]models.Role{
	OpBinCreate: {models.RoleAdmin},
	OpBinUpdate: {models.RoleAdmin},
	OpBinDelete: {models.RoleAdmin},

	OpCollectionList:   anyRole,
	OpCollectionCreate: {models.RoleDriver, models.RoleAdmin},

	OpRouteList:         anyRole,
	OpRouteGet:          anyRole,
	OpRouteCreate:       {models.RoleAdmin},
	OpRouteUpdateStatus: {models.RoleDriver, models.RoleAdmin},
	OpRouteDelete:       {models.RoleAdmin},

	OpUserList:   {models.RoleAdmin},
	OpUserGet:    anyRole,
	OpUserUpdate: anyRole,
	OpUserDelete: {models.RoleAdmin},

	OpComplaintCreate:       anyRole,
	OpComplaintListMine:     anyRole,
	OpComplaintListAll:      {models.RoleAdmin},
	OpComplaintUpdateStatus: {models.RoleAdmin},

	OpNotificationList: anyRole,
	OpNotificationRead: anyRole,

	OpUploadSignature: anyRole,
}

// Authorize reports whether the role may perform the operation
func Authorize(role models.Role, op Operation) bool {
	for _, allowed := range operationRoles[op] {
		if role == allowed {
			return true
		}
	}
	return false
}

// Require guards a handler with the authorization table. Denial yields a
// 403 distinct from the middleware's 401.
func Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message": "unauthenticated"}`))
				return
			}
			if !Authorize(principal.Role, op) {
				roles := operationRoles[op]
				names := make([]string, len(roles))
				for i, role := range roles {
					names[i] = string(role)
				}
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(fmt.Sprintf(`{"message": "Access denied. Required role(s): %s"}`, strings.Join(names, ", "))))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

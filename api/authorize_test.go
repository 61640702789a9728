package api

import (
	"testing"

	"github.com/cleancity/waste-collection-api/models"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		op   Operation
		want bool
	}{
		{"admin creates bins", models.RoleAdmin, OpBinCreate, true},
		{"driver cannot create bins", models.RoleDriver, OpBinCreate, false},
		{"citizen cannot delete bins", models.RoleCitizen, OpBinDelete, false},

		{"driver records collections", models.RoleDriver, OpCollectionCreate, true},
		{"admin records collections", models.RoleAdmin, OpCollectionCreate, true},
		{"citizen cannot record collections", models.RoleCitizen, OpCollectionCreate, false},
		{"citizen may list collections", models.RoleCitizen, OpCollectionList, true},

		{"admin creates routes", models.RoleAdmin, OpRouteCreate, true},
		{"driver cannot create routes", models.RoleDriver, OpRouteCreate, false},
		{"driver updates route status", models.RoleDriver, OpRouteUpdateStatus, true},
		{"citizen cannot update route status", models.RoleCitizen, OpRouteUpdateStatus, false},
		{"driver cannot delete routes", models.RoleDriver, OpRouteDelete, false},

		{"admin lists users", models.RoleAdmin, OpUserList, true},
		{"citizen cannot list users", models.RoleCitizen, OpUserList, false},
		{"driver reads a user", models.RoleDriver, OpUserGet, true},
		{"driver cannot delete users", models.RoleDriver, OpUserDelete, false},

		{"citizen files complaints", models.RoleCitizen, OpComplaintCreate, true},
		{"citizen lists own complaints", models.RoleCitizen, OpComplaintListMine, true},
		{"citizen cannot list all complaints", models.RoleCitizen, OpComplaintListAll, false},
		{"driver cannot resolve complaints", models.RoleDriver, OpComplaintUpdateStatus, false},
		{"admin resolves complaints", models.RoleAdmin, OpComplaintUpdateStatus, true},

		{"unknown operation denies everyone", models.RoleAdmin, Operation("bogus"), false},
		{"unknown role denies", models.Role("root"), OpUserGet, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.role, tt.op); got != tt.want {
				t.Errorf("Authorize(%q, %q) = %v, want %v", tt.role, tt.op, got, tt.want)
			}
		})
	}
}

func TestOperationTableCoversAllOperations(t *testing.T) {
	ops := []Operation{
		OpBinCreate, OpBinUpdate, OpBinDelete,
		OpCollectionList, OpCollectionCreate,
		OpRouteList, OpRouteGet, OpRouteCreate, OpRouteUpdateStatus, OpRouteDelete,
		OpUserList, OpUserGet, OpUserUpdate, OpUserDelete,
		OpComplaintCreate, OpComplaintListMine, OpComplaintListAll, OpComplaintUpdateStatus,
		OpNotificationList, OpNotificationRead,
		OpUploadSignature,
	}
	for _, op := range ops {
		if len(operationRoles[op]) == 0 {
			t.Errorf("operation %q has no allowed roles", op)
		}
	}
}

package contentflow

import "github.com/google/uuid"

// Resource is anything the access policy can be evaluated against.
type Resource interface {
	ResourceTenantID() uuid.UUID
	ResourceCreatorID() uuid.UUID
	ResourceProducerID() *uuid.UUID
}

func (c *Content) ResourceTenantID() uuid.UUID { return c.TenantID }
func (c *Content) ResourceCreatorID() uuid.UUID { return c.CreatorID }
func (c *Content) ResourceProducerID() *uuid.UUID { return c.ProducerID }

func (d *Draft) ResourceTenantID() uuid.UUID { return d.TenantID }
func (d *Draft) ResourceCreatorID() uuid.UUID { return d.CreatorID }
func (d *Draft) ResourceProducerID() *uuid.UUID { return nil }

// CanModify reports whether principal may mutate resource.
//
// The tenant must match. Privileged principals may then modify anything;
// standard principals only what they created or were assigned to produce.
// Unset ids never match.
func CanModify(resource Resource, principal Principal) bool {
	if !sameTenant(resource, principal) {
		return false
	}
	switch principal.Role {
	case RolePrivileged:
		return true
	case RoleStandard:
		return matches(principal.ID, resource.ResourceCreatorID()) ||
			matchesPtr(principal.ID, resource.ResourceProducerID())
	default:
		return false
	}
}

// CanView reports whether principal may read resource. Any role of the same
// tenant may read.
func CanView(resource Resource, principal Principal) bool {
	if !sameTenant(resource, principal) {
		return false
	}
	return principal.Role == RolePrivileged || principal.Role == RoleStandard
}

// canDelete: privileged principals of the tenant, or the creator.
func canDelete(resource Resource, principal Principal) bool {
	if !sameTenant(resource, principal) {
		return false
	}
	if principal.IsPrivileged() {
		return true
	}
	return principal.Role == RoleStandard && matches(principal.ID, resource.ResourceCreatorID())
}

func isProducer(resource Resource, principal Principal) bool {
	return sameTenant(resource, principal) && matchesPtr(principal.ID, resource.ResourceProducerID())
}

func sameTenant(resource Resource, principal Principal) bool {
	if resource == nil {
		return false
	}
	return matches(principal.TenantID, resource.ResourceTenantID())
}

func matches(a, b uuid.UUID) bool {
	return a != uuid.Nil && a == b
}

func matchesPtr(a uuid.UUID, b *uuid.UUID) bool {
	return b != nil && matches(a, *b)
}

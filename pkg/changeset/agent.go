package changeset

import (
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// CompareAgents diffs an existing agent against its incoming version.
func CompareAgents(oldAgent, newAgent *models.Agent) Diff {
	b := newBuilder()

	b.compareText("name", oldAgent.Name, newAgent.Name)
	b.compareString("username", oldAgent.Username, newAgent.Username)
	b.compareString("email", oldAgent.Email, newAgent.Email)
	b.compareBool("is_active", oldAgent.IsActive, newAgent.IsActive)

	return b.build()
}

// CompareDepartments diffs an existing department against its incoming
// version.
func CompareDepartments(oldDept, newDept *models.Department) Diff {
	b := newBuilder()

	b.compareText("name", oldDept.Name, newDept.Name)
	b.compareBool("is_active", oldDept.IsActive, newDept.IsActive)
	b.compareBool("is_leaf", oldDept.IsLeaf, newDept.IsLeaf)

	return b.build()
}

// Package complaint provides the business boundary for Redress's grievance
// triage system. It defines the Service (intake, role-scoped reads, reassign
// and resolve transitions), Worker (async classification consumer), Store
// interface (namespaced document persistence), the access policy, and domain
// models.
package complaint

// Package contentflow provides the content lifecycle and metrics aggregation
// engine of a multi-tenant publishing workflow.
//
// Content moves through a status state machine (pending, in production,
// posted, finished, canceled). Standard users drive content they were assigned
// to produce along the machine's edges; privileged users may set any status.
// Approved drafts are promoted to content in a single transaction that also
// removes the draft.
//
// Engagement metrics are kept per content in a ContentMetrics aggregate that
// owns one ChannelMetric per channel. Every channel write re-sums likes,
// comments and shares over all children, so repeated writes never double
// count.
//
// Persistence is pluggable through Repository; memory and Postgres
// implementations live under repo/. The acting principal is resolved from the
// request context (see WithPrincipal) unless another PrincipalProvider is
// configured.
package contentflow

// Package memory sizes imagelite's memory use.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from a container limit (MEMORY_LIMIT,
// MEMORY_RATIO) so the runtime collects before the container is OOM-killed.
//
// [BudgetFromEnv] picks the processing budget that the source probe checks
// decoded image sizes against: IMAGELITE_MEMORY_BUDGET when set, otherwise
// half of the Go soft limit, otherwise no check.
//
// [Monitor] samples heap usage during batch runs and holds back new renders
// while usage is above the critical water mark, resuming below the high
// water mark.
package memory

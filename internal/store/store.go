// README: Storage collaborator shared by every module service.
//
// Two implementations exist: Postgres (pgx) for production and Memory for
// tests. Both satisfy, structurally, the narrow per-module interfaces declared
// next to each service (profile.Store, request.Store, response.Store,
// matching.ProfileSource, matching.RequestSource), including the RunInTx
// unit-of-work required by the response resolution engine.
package store

// Package ispyb reads Beamline Session records from an ISPyB MySQL
// database.
//
// The package owns the connection pool, the row entities (generated by
// ispybgen from INFORMATION_SCHEMA, see cmd/ispybgen) and the
// SessionRepository that the GraphQL resolvers query. The repository
// is strictly read-only.
//
// Absence is not an error: lookups that match no row return a nil
// entity with a nil error, and callers render that as GraphQL null.
// Driver failures wrap ErrStorage.
//
// # Usage
//
//	db, err := ispyb.Open(ispyb.DBConfig{URL: databaseURL, MaxOpenConns: 10})
//	if err != nil {
//	    return err
//	}
//	repo := ispyb.NewRepository(db, ispyb.WithLogger(logger))
//
//	session, err := repo.GetSessionForVisit(ctx, 12345, 2)
package ispyb

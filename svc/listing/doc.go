// Package listing onboards meal providers.
//
// Service.Create turns the authenticated caller into a provider and inserts
// their unverified listing in a single transaction. Callers whose role is
// neither provider nor admin are escalated to provider before the insert;
// admins keep their role. A duplicate contact e-mail rolls the whole
// transaction back and reports ErrDuplicateListing.
package listing

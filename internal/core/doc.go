// Package core provides the business logic for employee CSV imports.
//
// The package holds all domain logic independent of any transport or storage.
// Collaborators (blob storage, employee persistence, mail, user lookup) are
// described by the interfaces in ports.go and injected through [Deps].
//
// # Import flow
//
// [Importer.Run] processes one uploaded file for one owner:
//
//  1. The owner is looked up; the file must exist in the [BlobStore]
//  2. Content is read, a BOM stripped, invalid UTF-8 replaced and split on "\n"
//  3. The first line is the header; name, email, cpf, city and state must be
//     present in any order (taxId is accepted for cpf, case must match)
//  4. Each data line is zipped against the header, passed through
//     [Normalize] and [RowValidator.Validate], then handed to the
//     [EmployeeCreator]
//  5. A summary is mailed to the owner and the file is deleted
//
// Steps 1 to 3 fail fast with [ErrOwnerNotFound], [ErrFileNotFound],
// [ErrEmptyFile] or [ErrMissingHeaders]. Problems in step 4 reject only the
// affected line. A rejected line has no side effects.
//
// # Duplicates
//
// The first line that reaches creation owns its email and CPF. Later lines
// repeating either are rejected with "already in use", as are identifiers
// that [UsageChecker] finds in storage. The creator's unique constraint is
// the final arbiter when two writers race.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - FILE001-FILE005: File errors (missing, empty, size, type)
//   - VAL004: Missing header columns
//   - DB001-DB007: Database errors (duplicates, connections)
//   - USR001: Import owner not found
//   - JOB001-JOB002: Background job errors (timeout, queue)
//   - UPL001: Too many concurrent uploads
package core

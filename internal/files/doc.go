/*
Package files implements the per-tenant sandboxed file management engine.

Every tenant is confined to a root directory derived from its id. All
public operations take a tenant id plus tenant-relative paths and resolve
them through the Sandbox before touching the filesystem; the sandbox is
the only access-control boundary. Operations cover directory listing,
file CRUD, rename/copy/move, zip compression and extraction, and bounded
recursive name search.

Bulk operations (recursive copy, archive extraction) are best effort:
individual entries may be skipped and a mid-operation failure leaves
already-written data in place. Callers requiring atomicity must stage
and rename themselves.
*/
package files

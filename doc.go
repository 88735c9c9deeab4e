/*
Package redisrec implements record tables on top of a key-value store that
offers hashes, sorted sets and atomic counters (Redis, or the embedded Bolt and
in-memory backends that emulate the same primitives).

We implement:

1. Tables, collections of attribute maps identified by a non-negative integer
primary key.

2. Auto-increment ids, allocated from a per-table atomic counter.

3. A primary-key index, an ordered set of live ids used for existence checks,
counting and batched full scans.

4. Attribute encoding: structured attributes are stored as JSON, scalars as
their textual form, and decoded back according to the table's schema.

There are no transactions. Every operation is a short sequence of single-key
commands; multi-record atomicity, dirty tracking and rollback belong to whatever
unit-of-work layer calls into this package.

# Storage Layout

For a table named T under prefix segments P1..Pn (joined with ":"):

	P1:...:Pn:T$sequence   counter, last issued id
	P1:...:Pn:T$all        sorted set of live ids, score = id
	P1:...:Pn:T:<id>       hash of attribute name => string value

**Write ordering.**
A record body is always written before its id enters the index, and an id
always leaves the index before its body is deleted. A crash between the two
steps leaves an orphaned body (see Table.Orphans), never an index entry that
points at nothing.

**Scans.**
Full scans walk the index in batches (ZRANGEBYSCORE lower +inf LIMIT 0 n) and
fetch each batch of bodies in one pipelined round trip. The cursor is the last
id seen, so deletes during the walk do not shift later batches. Scans are not
isolated from concurrent writers: an id removed after its batch was read is
silently skipped.

**Explicit ids.**
Inserting a record with an explicit id does not advance the sequence counter,
so a later generated id can collide with it. Such an Insert fails with
ErrAlreadyExists (the sequence has moved on, so retrying succeeds). Callers
that mix explicit and generated ids should expect this.

Explicit ids must lie in [0, MaxID]. Redis keeps sorted set scores as
float64, so larger ids could not be ordered exactly by the index.

Attribute names are matched case-insensitively against the schema. A record
that names the same attribute twice in different case (id and ID) is rejected
with ErrInvalidValue.
*/
package redisrec

// Package handoff implements the staging area used to pass encoded images
// between pipeline steps.
//
// A Store maps slot keys to StagedImage records. Keys are namespaced by
// prefix: the upload step writes the pending source under a prefix of its
// choosing (for example "pending/upload-1"), and the editor writes its
// result under a distinct, well-known slot (for example "export/edited").
//
// # Record layout
//
// Each record is persisted as JSON:
//
//	{"name": "photo.jpg", "data": "data:image/jpeg;base64,/9j/4AAQ..."}
//
// The data field is a self-describing data URI so consumers need no side
// channel to learn the encoding.
//
// # Visibility
//
// Put is last-writer-wins per exact key and atomic: a reader observes either
// the previous record or the complete new one, never a partial write.
// MemoryStore guarantees this with a lock around whole serialized records;
// SQLiteStore with a single upsert statement.
package handoff

// Package catview provides a personalized-catalog ordering and visibility
// engine for Go.
//
// Catview serves applications that expose a shared catalog of items (system
// defaults plus owner-created customs) to many independent owners, where
// each owner may hide items and reorder them without forking the catalog.
// Customization is stored as sparse per-(owner, item) overrides: storage
// grows with the number of diverged pairs, not owners times items.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	cat := catalog.NewMemoryStore()
//	ovr := override.NewMemoryStore()
//	tbl := baseline.Seed("expense", []model.ItemID{"food", "rent", "travel"})
//
//	cv, _ := catview.New(cat, ovr, cache.StaticBaseline(tbl))
//
//	entries, _ := cv.View(ctx, "alice", "expense", false)
//	_ = cv.Reorder(ctx, "alice", "expense", []model.ItemID{"rent", "food", "travel"})
//	_ = cv.SetHidden(ctx, "alice", "travel", true)
//
// # Production Stores
//
// The in-memory stores are for tests and prototyping. For production, back
// overrides with DynamoDB and snapshots with S3 or MinIO:
//
//	client, _ := dynamodb.NewDefaultClient(ctx)
//	ovr := dynamodb.NewStore(client, "catview-overrides")
//
//	s3Client, _ := s3.NewDefaultClient(ctx)
//	blobs := s3.NewStore(s3Client, "my-bucket", "snapshots/")
//	cv, _ := catview.New(cat, ovr, loader, catview.WithSnapshotStore(blobs))
//
// # Ordering Model
//
// Every item has an effective integer order key: a baseline key for shared
// defaults, an append sentinel for untouched customs, or the owner's
// override key. Views sort by key with item id as tie-break, so ordering is
// total and deterministic even for items an owner never touched.
//
// Reorders diff the requested sequence against the current order and write
// new keys only for items whose relative position changed: moving one item
// in a partition of any size costs one write. Keys are allocated sparsely;
// when a gap between neighbors is exhausted, a local window is respaced
// automatically.
//
// # Concurrency
//
// Different owners never contend. Two sessions reordering for the same
// owner resolve by last write wins, unless the caller opts into optimistic
// concurrency with WithExpectedOrder and retries on
// ErrConcurrentModification.
package catview

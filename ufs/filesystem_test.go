package ufs

import (
	"bytes"
	"testing"

	"github.com/blockkit/unixfs/backend/file"
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/fserrors"
)

func TestMkfsRootDirectory(t *testing.T) {
	fs := testFS(t, 64, 80)
	root, err := fs.RootInode()
	if err != nil {
		t.Fatalf("root inode: %v", err)
	}
	if root.Number() != RootInodeNum {
		t.Errorf("root inode number = %d, expected %d", root.Number(), RootInodeNum)
	}
	if root.Kind() != KindDirectory {
		t.Errorf("root kind = %v, expected directory", root.Kind())
	}
	if root.Size() != 2*dirEntrySize {
		t.Errorf("root size = %d, expected %d", root.Size(), 2*dirEntrySize)
	}
	if root.LinkCount() < 1 {
		t.Errorf("root link count = %d, expected >= 1", root.LinkCount())
	}
	for _, name := range []string{".", ".."} {
		no, err := root.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if no != RootInodeNum {
			t.Errorf("Lookup(%q) = %d, expected %d", name, no, RootInodeNum)
		}
	}
}

func TestAllocatorsAreDeterministic(t *testing.T) {
	fs := testFS(t, 64, 80)
	// slot 0 is reserved and the root took slot 1, so the next
	// allocations must be 2, 3, 4 in order
	for _, expected := range []uint32{2, 3, 4} {
		ino, err := fs.AllocateInode(KindRegularFile)
		if err != nil {
			t.Fatalf("AllocateInode: %v", err)
		}
		if ino.Number() != expected {
			t.Errorf("AllocateInode = slot %d, expected %d", ino.Number(), expected)
		}
	}
	// the root directory block took the first data block
	dataStart := fs.sb.layout.dataRegionStart
	for _, expected := range []uint32{dataStart + 1, dataStart + 2} {
		blockNo, err := fs.AllocateBlock()
		if err != nil {
			t.Fatalf("AllocateBlock: %v", err)
		}
		if blockNo != expected {
			t.Errorf("AllocateBlock = %d, expected %d", blockNo, expected)
		}
	}
}

func TestAllocateInodeNoSpace(t *testing.T) {
	fs := testFS(t, 16, 4)
	// slots 0 (reserved) and 1 (root) are gone; 2 and 3 remain
	for i := 0; i < 2; i++ {
		if _, err := fs.AllocateInode(KindRegularFile); err != nil {
			t.Fatalf("AllocateInode #%d: %v", i, err)
		}
	}
	_, err := fs.AllocateInode(KindRegularFile)
	if !fserrors.Is(err, fserrors.KindNoSpace) {
		t.Errorf("expected NoSpace after exhausting the inode bitmap, got %v", err)
	}
}

func TestAllocateBlockNoSpace(t *testing.T) {
	fs := testFS(t, 8, 16)
	// data region is 8 - 4 metadata blocks = 4, one taken by the root
	for i := 0; i < 3; i++ {
		if _, err := fs.AllocateBlock(); err != nil {
			t.Fatalf("AllocateBlock #%d: %v", i, err)
		}
	}
	_, err := fs.AllocateBlock()
	if !fserrors.Is(err, fserrors.KindNoSpace) {
		t.Errorf("expected NoSpace after exhausting the data bitmap, got %v", err)
	}
}

func TestGetInodeCaching(t *testing.T) {
	fs := testFS(t, 64, 80)
	ino, err := fs.AllocateInode(KindRegularFile)
	if err != nil {
		t.Fatal(err)
	}
	again, err := fs.GetInode(ino.Number())
	if err != nil {
		t.Fatal(err)
	}
	if ino != again {
		t.Errorf("GetInode returned a different object for a cached inode")
	}
}

func TestMountRejectsGarbage(t *testing.T) {
	storage, _ := testImage(t, 8)
	if _, err := Mount(storage, testLogger()); err == nil {
		t.Errorf("expected Mount of an unformatted image to fail")
	}
}

func TestPersistenceAcrossRemount(t *testing.T) {
	storage, path := testImage(t, 64)
	fs, err := Mkfs(storage, 64, 80, testLogger())
	if err != nil {
		t.Fatalf("mkfs: %v", err)
	}
	root, err := fs.RootInode()
	if err != nil {
		t.Fatal(err)
	}
	fileNo, err := root.Create("f", KindRegularFile)
	if err != nil {
		t.Fatalf("create f: %v", err)
	}
	ino, err := fs.GetInode(fileNo)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("Hello world")
	if _, err := ino.Write(0, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	dirNo, err := root.Create("d", KindDirectory)
	if err != nil {
		t.Fatalf("create d: %v", err)
	}
	volumeID := fs.VolumeID
	if err := storage.Close(); err != nil {
		t.Fatalf("closing image: %v", err)
	}

	reopened, err := file.OpenFromPath(path, false)
	if err != nil {
		t.Fatalf("reopening image: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	fs2, err := Mount(reopened, testLogger())
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	if fs2.VolumeID != volumeID {
		t.Errorf("volume ID changed across remount: %s vs %s", fs2.VolumeID, volumeID)
	}
	root2, err := fs2.RootInode()
	if err != nil {
		t.Fatal(err)
	}
	no, err := root2.Lookup("f")
	if err != nil {
		t.Fatalf("lookup f after remount: %v", err)
	}
	if no != fileNo {
		t.Errorf("f resolved to inode %d after remount, expected %d", no, fileNo)
	}
	ino2, err := fs2.GetInode(no)
	if err != nil {
		t.Fatal(err)
	}
	if ino2.Size() != uint32(len(payload)) {
		t.Errorf("f size after remount = %d, expected %d", ino2.Size(), len(payload))
	}
	data, err := ino2.Read(0, ino2.Size())
	if err != nil {
		t.Fatalf("read after remount: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("f content after remount = %q, expected %q", data, payload)
	}
	dNo, err := root2.Lookup("d")
	if err != nil {
		t.Fatalf("lookup d after remount: %v", err)
	}
	if dNo != dirNo {
		t.Errorf("d resolved to inode %d after remount, expected %d", dNo, dirNo)
	}
	// allocators must resume from the persisted bitmaps, not restart
	next, err := fs2.AllocateInode(KindRegularFile)
	if err != nil {
		t.Fatal(err)
	}
	if next.Number() <= dirNo {
		t.Errorf("allocator reused live inode slot %d after remount", next.Number())
	}
}

func TestBitmapConsistencyAfterWrites(t *testing.T) {
	fs := testFS(t, 64, 80)
	root, err := fs.RootInode()
	if err != nil {
		t.Fatal(err)
	}
	no, err := root.Create("g", KindRegularFile)
	if err != nil {
		t.Fatal(err)
	}
	ino, err := fs.GetInode(no)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ino.Write(0, bytes.Repeat([]byte{'x'}, blockdev.BlockSize+1)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// every non-zero direct pointer must land in the data region with its
	// bitmap bit set, and no block may be referenced twice
	seen := map[uint32]bool{}
	for _, inode := range []*Inode{root, ino} {
		for _, blockNo := range inode.rec.Direct {
			if blockNo == 0 {
				continue
			}
			if blockNo < fs.sb.layout.dataRegionStart || blockNo >= fs.sb.layout.numBlocks {
				t.Errorf("direct pointer %d outside the data region", blockNo)
			}
			if seen[blockNo] {
				t.Errorf("block %d referenced twice", blockNo)
			}
			seen[blockNo] = true
			set, err := fs.sb.dataBitmap.IsSet(int(blockNo - fs.sb.layout.dataRegionStart))
			if err != nil {
				t.Fatal(err)
			}
			if !set {
				t.Errorf("block %d referenced but not marked allocated", blockNo)
			}
		}
	}
}

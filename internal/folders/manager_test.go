package folders

import (
	"errors"
	"net/http"
	"sort"
	"testing"

	drivetest "github.com/dl-alexandre/drivesync/internal/testing"
	"github.com/dl-alexandre/drivesync/internal/types"
	"github.com/dl-alexandre/drivesync/internal/utils"
)

func newTestManager(t *testing.T) (*Manager, *drivetest.FakeDrive) {
	t.Helper()
	fake := drivetest.NewFakeDrive(t)
	return NewManager(drivetest.NewTestClient(t, fake, 0)), fake
}

func TestCreate(t *testing.T) {
	m, fake := newTestManager(t)

	folder, err := m.Create(drivetest.TestContext(), drivetest.TestRequestContext(), "reports", "root", "quarterly")
	drivetest.AssertNoError(t, err, "Create")

	item, ok := fake.Item(folder.ID)
	if !ok || !item.IsFolder() {
		t.Fatalf("folder not stored: %+v", item)
	}
	drivetest.AssertEqual(t, item.Description, "quarterly")
	drivetest.AssertEqual(t, folder.MimeType, utils.MimeTypeFolder)
}

func TestListChildren_DrainsPagination(t *testing.T) {
	m, fake := newTestManager(t)
	fake.PageSize = 3
	parent := fake.AddFolder("p", "root")
	for i := 0; i < 5; i++ {
		fake.AddFile(string(rune('a'+i))+".txt", parent, []byte("x"))
	}
	fake.AddFile("empty.txt", parent, nil)
	fake.AddItem(drivetest.FakeItem{Name: "old.txt", Parents: []string{parent}, Trashed: true})

	reqCtx := drivetest.TestRequestContext()
	children, err := m.ListChildren(drivetest.TestContext(), reqCtx, parent)
	drivetest.AssertNoError(t, err, "ListChildren")

	drivetest.AssertEqual(t, len(children), 6, "children")
	drivetest.AssertEqual(t, fake.Calls("list"), 2, "list calls")
	drivetest.AssertEqual(t, len(reqCtx.InvolvedParentIDs), 1, "parent recorded once across pages")
	drivetest.AssertEqual(t, reqCtx.InvolvedParentIDs[0], parent)
}

func TestListChildren_EmptyFolder(t *testing.T) {
	m, fake := newTestManager(t)
	parent := fake.AddFolder("empty", "root")

	children, err := m.ListChildren(drivetest.TestContext(), drivetest.TestRequestContext(), parent)
	drivetest.AssertNoError(t, err)
	drivetest.AssertEqual(t, len(children), 0)
}

func TestListChildren_Failure(t *testing.T) {
	m, fake := newTestManager(t)
	fake.Fail(http.MethodGet, "/files", http.StatusUnauthorized, 1)

	_, err := m.ListChildren(drivetest.TestContext(), drivetest.TestRequestContext(), "root")
	drivetest.AssertError(t, err)
	if utils.KindOf(err) != utils.KindRemoteUnavailable {
		t.Errorf("KindOf() = %v, want RemoteUnavailable", utils.KindOf(err))
	}
}

func TestFindByName(t *testing.T) {
	m, fake := newTestManager(t)
	a := fake.AddFolder("photos", "root")
	fake.AddFolder("photos", a)
	fake.AddFile("photos", "root", nil)

	anywhere, err := m.FindByName(drivetest.TestContext(), drivetest.TestRequestContext(), "photos", "")
	drivetest.AssertNoError(t, err)
	drivetest.AssertEqual(t, len(anywhere), 2, "folders anywhere")

	underRoot, err := m.FindByName(drivetest.TestContext(), drivetest.TestRequestContext(), "photos", "root")
	drivetest.AssertNoError(t, err)
	drivetest.AssertEqual(t, len(underRoot), 1, "folders under root")
	drivetest.AssertEqual(t, underRoot[0].ID, a)
}

func TestWipeContents(t *testing.T) {
	m, fake := newTestManager(t)
	keep := fake.AddFolder("keep", "root")
	for i := 0; i < 23; i++ {
		fake.AddFile("f", keep, []byte("x"))
	}
	sub := fake.AddFolder("sub", keep)
	fake.AddFile("nested.txt", sub, []byte("y"))

	result, err := m.WipeContents(drivetest.TestContext(), drivetest.TestRequestContext(), keep)
	drivetest.AssertNoError(t, err, "WipeContents")

	drivetest.AssertEqual(t, result.Deleted, 25, "deleted")
	drivetest.AssertEqual(t, result.Failed, 0, "failed")
	drivetest.AssertEqual(t, len(fake.Children(keep)), 0, "remaining children")
	if _, ok := fake.Item(keep); !ok {
		t.Error("the wiped folder itself must remain")
	}
}

func TestWipeContents_CountsFailures(t *testing.T) {
	m, fake := newTestManager(t)
	parent := fake.AddFolder("p", "root")
	bad := fake.AddFile("bad", parent, nil)
	fake.AddFile("good", parent, nil)
	fake.Fail(http.MethodDelete, bad, http.StatusForbidden, 1)

	result, err := m.WipeContents(drivetest.TestContext(), drivetest.TestRequestContext(), parent)
	drivetest.AssertNoError(t, err)

	drivetest.AssertEqual(t, result.Deleted, 1, "deleted")
	drivetest.AssertEqual(t, result.Failed, 1, "failed")
	drivetest.AssertEqual(t, result.FailedIDs[0], bad)
}

func TestWalk(t *testing.T) {
	m, fake := newTestManager(t)
	top := fake.AddFolder("top", "root")
	fake.AddFile("a", top, nil)
	inner := fake.AddFolder("inner", top)
	fake.AddFile("b", inner, nil)
	fake.AddFile("c", "root", nil)

	var names []string
	visited, failed, err := m.Walk(drivetest.TestContext(), drivetest.TestRequestContext(), "root", func(item *types.DriveFile) error {
		names = append(names, item.Name)
		if item.Name == "b" {
			return errors.New("permission denied")
		}
		return nil
	})
	drivetest.AssertNoError(t, err, "Walk")

	sort.Strings(names)
	drivetest.AssertEqual(t, visited, 5)
	drivetest.AssertEqual(t, failed, 1)
	drivetest.AssertEqual(t, len(names), 5)
	drivetest.AssertEqual(t, names[0], "a")
	drivetest.AssertEqual(t, names[4], "top")
}

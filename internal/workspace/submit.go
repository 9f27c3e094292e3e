package workspace

import (
	"context"
	"slices"
	"strings"

	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/users"
)

// Banner messages of refused submissions.
const (
	cableQuickActionRefusal = "Use cable quantity controls instead of deploy/return"
	duplicateCableMessage   = "This cable already exists with the same ends and length. Use Cable Manager to adjust quantity (+/-) instead."
	ownerOnlyRoleMessage    = "Only owners can change user roles"
)

// normalizeItemForm prepares an add/edit form for the backend. A category
// typed to match an existing one is kept as is, anything else is
// capitalized. Cable ends and lengths are put in canonical form.
func normalizeItemForm(form inventory.ItemForm, categories []string) inventory.ItemForm {
	category := strings.TrimSpace(form.Category)
	if !slices.Contains(categories, category) {
		category = inventory.CapitalizeFirst(category)
	}
	form.Category = category
	if inventory.IsCableCategory(category) {
		form.Make = inventory.NormalizeCableEnds(form.Make)
		form.Model = inventory.NormalizeCableLength(form.Model)
	}
	return form
}

// isDuplicateCable reports whether form describes a cable already stocked.
func isDuplicateCable(form inventory.ItemForm, stock []inventory.Item) bool {
	candidate := inventory.Item{Category: form.Category, Make: form.Make, Model: form.Model}
	for _, existing := range stock {
		if inventory.SameCable(existing, candidate) {
			return true
		}
	}
	return false
}

// permissions returns what the signed-in role may do.
func (a *App) permissions() users.Permissions {
	current, err := a.tracker.Current()
	if err != nil {
		return users.Permissions{}
	}
	return users.PermissionsFor(current.Role)
}

// isSelected reports, on the loop, whether id is the item open in detail.
func (a *App) isSelected(ctx context.Context, id int64) bool {
	selected := false
	a.commit(ctx, func() { selected = a.stock.selectedID == id })
	return selected
}

// refreshDetail reloads the detail panel when it shows id.
func (a *App) refreshDetail(ctx context.Context, id int64) {
	if a.isSelected(ctx, id) {
		a.FetchItemDetail(ctx, id)
	}
}

func (a *App) submitAdd() {
	s := &a.stock
	if !s.addForm.HasRequiredFields() {
		return
	}
	form := normalizeItemForm(s.addForm, inventory.UniqueCategories(s.allItems))
	duplicate := inventory.IsCableCategory(form.Category) && isDuplicateCable(form, s.allItems)

	a.runGuarded(func(ctx context.Context, token string) error {
		if duplicate {
			return userError(duplicateCableMessage)
		}
		created, err := a.stockAPI.Create(ctx, token, form)
		if err != nil {
			return err
		}
		a.refreshLists(ctx, token)
		if created.IsCable() {
			if err := a.loadCableSummary(ctx, token, created.Category); err != nil {
				return err
			}
		}
		a.commit(ctx, func() {
			a.stock.addForm = inventory.ItemForm{}
			a.SetSelectedID(created.ID)
		})
		a.FetchItemDetail(ctx, created.ID)
		a.commit(ctx, func() {
			a.stock.showAdd = false
			a.setNotice("Item added")
			a.changed()
		})
		return nil
	})
}

func (a *App) submitEdit() {
	s := &a.stock
	id := s.selectedID
	if id == 0 || !s.editForm.HasRequiredFields() {
		return
	}
	form := normalizeItemForm(s.editForm, inventory.UniqueCategories(s.allItems))
	cableCategory := s.cableCategory

	a.runGuarded(func(ctx context.Context, token string) error {
		updated, err := a.stockAPI.Update(ctx, token, id, form)
		if err != nil {
			return err
		}
		a.refreshLists(ctx, token)
		category := updated.Category
		if category == "" {
			category = form.Category
		}
		if inventory.IsCableCategory(category) {
			if updated.Category == "" {
				category = cableCategory
			}
			if err := a.loadCableSummary(ctx, token, category); err != nil {
				return err
			}
		}
		a.FetchItemDetail(ctx, id)
		a.commit(ctx, func() { a.setNotice("Edits saved") })
		return nil
	})
}

func (a *App) submitRetire() {
	s := &a.stock
	if s.retireItem == nil {
		return
	}
	item := *s.retireItem
	form := s.retireForm
	restoring := item.Status == inventory.StatusRetired

	a.runGuarded(func(ctx context.Context, token string) error {
		var err error
		if restoring {
			_, err = a.stockAPI.Restore(ctx, token, item.ID, form.Note, "")
		} else {
			err = a.stockAPI.Retire(ctx, token, item.ID, form.Note, form.ZeroStock)
		}
		if err != nil {
			return err
		}
		a.refreshLists(ctx, token)
		if item.IsCable() {
			if err := a.loadCableSummary(ctx, token, item.Category); err != nil {
				return err
			}
		}
		a.refreshDetail(ctx, item.ID)
		a.commit(ctx, func() {
			a.ClearRetire()
			a.stock.retireForm = inventory.NewRetireForm()
			if restoring {
				a.setNotice("Item restored")
			} else {
				a.setNotice("Item retired")
			}
		})
		return nil
	})
}

func (a *App) submitQuick() {
	s := &a.stock
	if s.quickItem == nil {
		return
	}
	if s.quickItem.IsCable() {
		a.setError(cableQuickActionRefusal)
		return
	}
	item := *s.quickItem
	form := s.quickForm

	a.runGuarded(func(ctx context.Context, token string) error {
		notice := "Item marked as deployed"
		var err error
		if item.Status == inventory.StatusDeployed {
			notice = "Item returned to stock"
			err = a.stockAPI.Return(ctx, token, item.ID, form.Note)
		} else {
			err = a.stockAPI.Deploy(ctx, token, item.ID, inventory.CapitalizeWords(form.AssignedUser), form.Note)
		}
		if err != nil {
			return err
		}
		a.commit(ctx, func() { a.setNotice(notice) })
		a.refreshLists(ctx, token)
		a.refreshDetail(ctx, item.ID)
		a.commit(ctx, func() {
			a.ClearQuickAction()
			a.stock.quickForm = inventory.NewQuickActionForm()
		})
		return nil
	})
}

// loadCableSummary loads the stock and history of a quantity-tracked
// category into the cable manager.
func (a *App) loadCableSummary(ctx context.Context, token, category string) error {
	summary, err := a.stockAPI.Summary(ctx, token, category)
	if err != nil {
		return err
	}
	a.commit(ctx, func() {
		s := &a.stock
		s.cableCategory = summary.Category
		s.cableItems = summary.Items
		s.cableHistory = summary.History
		a.changed()
	})
	return nil
}

func (a *App) openCable(category string) {
	a.runGuarded(func(ctx context.Context, token string) error {
		if err := a.loadCableSummary(ctx, token, category); err != nil {
			return err
		}
		a.commit(ctx, func() {
			a.stock.showCable = true
			a.changed()
		})
		return nil
	})
}

// applyCableQuantity turns a quantity form into a stock delta. A blank
// current quantity is looked up in the totals.
func (a *App) applyCableQuantity(q CableQuantity) {
	amount := inventory.ParseQuantity(q.Amount, -1)
	if amount < 0 {
		a.setError("Amount must be 0 or greater")
		return
	}

	switch q.Operation {
	case inventory.QuantitySet:
		var current int
		if strings.TrimSpace(q.Current) == "" {
			for _, item := range a.stock.allItems {
				if item.ID == q.ID {
					current = max(item.Quantity, 0)
					break
				}
			}
		} else {
			current = inventory.ParseQuantity(q.Current, 0)
		}
		if delta := amount - current; delta != 0 {
			a.adjustCable(q.ID, delta, q.Note)
		}
	case inventory.QuantityAdd:
		if amount != 0 {
			a.adjustCable(q.ID, amount, q.Note)
		}
	case inventory.QuantitySubtract:
		if amount != 0 {
			a.adjustCable(q.ID, -amount, q.Note)
		}
	default:
		a.setError("Invalid quantity operation")
	}
}

func (a *App) adjustCable(id int64, delta int, note string) {
	category := a.stock.cableCategory

	a.runGuarded(func(ctx context.Context, token string) error {
		if err := a.stockAPI.AdjustQuantity(ctx, token, id, delta, note); err != nil {
			return err
		}
		a.refreshLists(ctx, token)
		if err := a.loadCableSummary(ctx, token, category); err != nil {
			return err
		}
		a.refreshDetail(ctx, id)
		a.commit(ctx, func() { a.setNotice("Cable quantity updated") })
		return nil
	})
}

func (a *App) restoreCable(id int64) {
	category := a.stock.cableCategory

	a.runGuarded(func(ctx context.Context, token string) error {
		restored, err := a.stockAPI.Restore(ctx, token, id, "", "Failed to restore cable")
		if err != nil {
			return err
		}
		a.refreshLists(ctx, token)
		if restored.Category != "" {
			category = restored.Category
		}
		if err := a.loadCableSummary(ctx, token, category); err != nil {
			return err
		}
		a.refreshDetail(ctx, id)
		a.commit(ctx, func() { a.setNotice("Cable restored") })
		return nil
	})
}

func (a *App) submitCreateUser() {
	perms := a.permissions()
	if !perms.CanCreateUsers {
		return
	}
	form := a.users.createForm
	form.Role = perms.CreateRole(form.Role)

	a.runGuarded(func(ctx context.Context, token string) error {
		if err := a.userAPI.Create(ctx, token, form); err != nil {
			return err
		}
		a.commit(ctx, func() {
			a.users.createForm = users.NewCreateForm()
			a.changed()
		})
		a.loadUsers(ctx, token)
		a.commit(ctx, func() { a.setNotice("User created") })
		return nil
	})
}

func (a *App) submitUpdateRole(userID int64, role string) {
	if !a.permissions().IsOwner {
		a.setError(ownerOnlyRoleMessage)
		return
	}

	a.runGuarded(func(ctx context.Context, token string) error {
		if err := a.userAPI.UpdateRole(ctx, token, userID, role); err != nil {
			return err
		}
		a.loadUsers(ctx, token)
		a.commit(ctx, func() {
			a.users.roleEdit = users.NewRoleEdit()
			a.setNotice("User role updated")
			a.changed()
		})
		return nil
	})
}

func (a *App) submitResetPassword() {
	form := a.users.resetForm

	a.runGuarded(func(ctx context.Context, token string) error {
		if err := a.userAPI.ResetPassword(ctx, token, form.Username, form.NewPassword); err != nil {
			return err
		}
		a.commit(ctx, func() {
			a.users.resetForm = users.ResetPasswordForm{}
			a.setNotice("Password reset successfully")
			a.changed()
		})
		return nil
	})
}

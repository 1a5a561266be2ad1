package model

import "github.com/google/uuid"

// Capability describes what a caller may do with payment orders.
type Capability struct {
	UserID    uuid.UUID
	ManageAll bool
	// ManagedCourses lists the courses whose payments the caller may manage.
	ManagedCourses []uuid.UUID
}

// CanManage reports whether the caller holds manage-payments for the course.
func (c Capability) CanManage(courseID uuid.UUID) bool {
	if c.ManageAll {
		return true
	}
	for _, id := range c.ManagedCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// CanView reports whether the caller may see the order.
func (c Capability) CanView(o *Order) bool {
	return o.PayerID == c.UserID || c.CanManage(o.CourseID)
}

// Scope returns the listing restriction for the caller.
func (c Capability) Scope() *OrderScope {
	if c.ManageAll {
		return nil
	}
	return &OrderScope{
		PayerID: c.UserID,
		Courses: c.ManagedCourses,
	}
}

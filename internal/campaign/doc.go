// Package campaign provides the business boundary for Sift's threat campaign
// engine. It defines the Service (detection, matching, lifecycle, reporting),
// the Store interface (persistence), and the domain models.
package campaign

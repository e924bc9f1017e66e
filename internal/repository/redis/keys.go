package redis

import "fmt"

const ns = "boxoffice:v1"

func KeyContentShow(slug string) string {
	return fmt.Sprintf("%s:content:show:%s", ns, slug)
}

func KeyContentCourse(slug string) string {
	return fmt.Sprintf("%s:content:course:%s", ns, slug)
}

func KeyContentShowList() string {
	return ns + ":content:shows"
}

func KeyContentCourseList() string {
	return ns + ":content:courses"
}

func KeyCourseAvailability(courseID int64) string {
	return fmt.Sprintf("%s:course:%d:availability", ns, courseID)
}

func KeyIdemWebhookEvent(eventID string) string {
	return fmt.Sprintf("%s:idem:webhook:%s", ns, eventID)
}

func ChannelAvailabilityChanged() string {
	return ns + ":availability:changed"
}

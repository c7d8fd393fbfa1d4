package transfer

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Message fields: name, destination, throughput, percent.
type messageTemplate struct {
	active    string // name, destination
	completed string // name, destination
	failed    string // name, error
}

var templates = map[Kind]messageTemplate{
	KindUpload: {
		active:    "Uploading %s to %s",
		completed: "Uploaded %s to %s",
		failed:    "Failed to upload %s: %v",
	},
	KindDownload: {
		active:    "Downloading %s to %s",
		completed: "Downloaded %s to %s",
		failed:    "Failed to download %s: %v",
	},
	KindCopy: {
		active:    "Copying %s to %s",
		completed: "Copied %s to %s",
		failed:    "Failed to copy %s: %v",
	},
	KindDelete: {
		active:    "Deleting %s%s",
		completed: "Deleted %s%s",
		failed:    "Failed to delete %s: %v",
	},
}

// ProgressMessage renders the in-flight text for job. Throughput is left
// out while there is no reading.
func ProgressMessage(job Job, p Progress) string {
	tpl := templates[job.Kind()]
	msg := fmt.Sprintf(tpl.active, job.Name(), destination(job))
	msg += fmt.Sprintf(" (%.0f%%", p.Percent)
	if p.BytesPerSecond > 0 {
		msg += ", " + humanize.Bytes(uint64(p.BytesPerSecond)) + "/s"
	}
	return msg + ")"
}

// CompletionMessage renders the settlement text for job.
func CompletionMessage(job Job, err error) string {
	tpl := templates[job.Kind()]
	if err != nil {
		return fmt.Sprintf(tpl.failed, job.Name(), err)
	}
	return fmt.Sprintf(tpl.completed, job.Name(), destination(job))
}

func destination(job Job) string {
	if job.Kind() == KindDelete {
		return ""
	}
	return job.Target()
}

package storage

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectDescriptor is a read-only snapshot of an object's metadata.
// LastModified is always in UTC.
type ObjectDescriptor struct {
	Key          string
	ETag         string
	LastModified time.Time
	Size         int64
}

func descriptorFromObject(obj types.Object) ObjectDescriptor {
	return ObjectDescriptor{
		Key:          aws.ToString(obj.Key),
		ETag:         aws.ToString(obj.ETag),
		LastModified: aws.ToTime(obj.LastModified).UTC(),
		Size:         aws.ToInt64(obj.Size),
	}
}

func descriptorFromHead(key string, out *s3.HeadObjectOutput) ObjectDescriptor {
	return ObjectDescriptor{
		Key:          key,
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified).UTC(),
		Size:         aws.ToInt64(out.ContentLength),
	}
}

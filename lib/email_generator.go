package lib

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/emersion/go-imap"
)

const charset = "abcdefghijklmnopqrstuvwxyz " +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 " +
	",./;'\\ \" []{}<>?:|!@$%^&*()_+-= " +
	"\r\n\r\n\r\n "

const template = "From: %s\r\n" +
	"To: %s\r\n" +
	"Subject: Generated message #%d\r\n" +
	"Date: %s\r\n" +
	"Message-ID: <%d.%d@mailmock.local>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n%s"

var generatedFlags = []string{
	imap.SeenFlag,
	imap.AnsweredFlag,
	imap.FlaggedFlag,
	imap.DraftFlag,
	"$Forwarded",
	"$Label1",
}

func stringWithCharset(length int, charset string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// GenerateEmail returns a plain text message with a random body between minSize and maxSize bytes
func GenerateEmail(from, to string, uid uint32, minSize, maxSize int) []byte {
	length := minSize
	if maxSize > minSize {
		length += rand.Intn(maxSize - minSize)
	}
	msg := fmt.Sprintf(template,
		from,
		to,
		uid,
		time.Now().Format(time.RFC1123Z),
		uid,
		rand.Int63(),
		stringWithCharset(length, charset),
	)
	return []byte(msg)
}

// GenerateFlags returns between 0 and maxInt-1 distinct flags
func GenerateFlags(maxInt int) []string {
	if maxInt <= 1 {
		return []string{}
	}
	count := rand.Intn(maxInt)
	if count > len(generatedFlags) {
		count = len(generatedFlags)
	}
	flags := make([]string, 0, count)
	for _, index := range rand.Perm(len(generatedFlags))[:count] {
		flags = append(flags, generatedFlags[index])
	}
	return flags
}

// GenerateDateFrom returns a random date between from and now
func GenerateDateFrom(from time.Time) time.Time {
	span := time.Since(from)
	if span <= 1 {
		return from
	}
	return from.Add(time.Duration(rand.Int63n(int64(span)-1) + 1))
}

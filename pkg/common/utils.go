// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func GetEnvInt(key string, fallback int) int {
	str := GetEnv(key, strconv.Itoa(fallback))
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}

	return val
}

// GenerateUUID returns a random v4 UUID without dashes, used for trace IDs.
func GenerateUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateMatchID returns a random v4 UUID in canonical dashed form.
func GenerateMatchID() string {
	return uuid.NewString()
}

// LogJSONFormatter is printing the data in log
func LogJSONFormatter(data interface{}) string {
	response, err := json.Marshal(data)
	if err != nil {
		logrus.Errorf("failed to marshal json.")

		return ""
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{PrettyPrint: false})

		return string(response)
	}
}

// @title Tutor Voice API
// @version 1.0
// @description 语音导师服务端：文本转语音、口型同步与学生录音转写
// @host localhost:8080
// @BasePath /api
package main

import (
	"fmt"
	"os"
	"time"
)

func main() {
	fmt.Printf("[%s] [INFO] [引导] 开始启动 tutor-voice-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "tutor-voice-server failed: %v\n", err)
		os.Exit(1)
	}
}

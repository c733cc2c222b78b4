package llm

import (
	"fmt"
	"strings"

	"github.com/pavelanni/learnlab/internal/model"
)

var snippets = []struct {
	keyword string
	code    string
}{
	{"hadoop", "hdfs dfs -mkdir -p /user/lab   # create a directory in HDFS\n" +
		"hdfs dfs -put data.txt /user/lab  # upload a file\n" +
		"yarn application -list            # running applications\n" +
		"hadoop jar wordcount.jar /user/lab/data.txt /user/lab/out"},
	{"docker", "docker pull ubuntu:22.04              # fetch an image\n" +
		"docker run -it --name lab ubuntu:22.04 bash\n" +
		"docker ps -a                          # list containers\n" +
		"docker images                         # list images"},
	{"shell", "#!/bin/bash\n" +
		"name=\"example\"\n" +
		"count=10\n\n" +
		"if [ \"$count\" -gt 5 ]; then\n" +
		"    echo \"count is greater than 5\"\n" +
		"fi\n\n" +
		"for i in {1..5}; do\n" +
		"    echo \"number: $i\"\n" +
		"done"},
	{"linux", "ls -la              # detailed listing\n" +
		"pwd                 # current directory\n" +
		"cd /path/to/dir     # change directory\n" +
		"mkdir newdir        # create a directory\n" +
		"cp file1 file2      # copy a file\n" +
		"chmod 644 file      # set permissions"},
}

// LocalLesson builds a deterministic lesson outline for a topic without
// calling a model. An empty title is replaced by "<module> · Topic <ord>".
func LocalLesson(module string, topicOrd int, topicTitle string) model.TopicContent {
	title := topicTitle
	if title == "" {
		title = fmt.Sprintf("%s · Topic %d", module, topicOrd)
	}

	code := fmt.Sprintf("# %s\necho \"Studying topic %d of %s\"", module, topicOrd, module)
	lower := strings.ToLower(module)
	for _, s := range snippets {
		if strings.Contains(lower, s.keyword) {
			code = s.code
			break
		}
	}

	return model.TopicContent{
		Title: title,
		Theory: fmt.Sprintf("This lesson covers topic %d of %s: %s. "+
			"It introduces the core concepts and shows how they are used in practice.", topicOrd, module, title),
		Code: code,
		Case: fmt.Sprintf("**Case study:** %s shows up in everyday system administration, "+
			"automation and data processing. Work through the example commands on a lab machine "+
			"and compare the output with what the theory predicts.", title),
		Exercises: []string{
			"**Theory:** summarize the core ideas of this lesson in your own words and explain where you would use them.",
			"**Practice:** run the example commands and extend them into a small task of your own.",
			"**Going further:** look up one advanced option or best practice related to this topic.",
		},
		Summary: []string{title, module},
	}
}

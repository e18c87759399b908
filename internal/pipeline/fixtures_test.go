package pipeline

import (
	"testing"

	"github.com/RecoveryAshes/wescraper/internal/cookiepool"
	"github.com/RecoveryAshes/wescraper/internal/models"
)

const (
	searchURL  = "http://weixin.sogou.com/weixin?query=examplecorp"
	blockedURL = "http://weixin.sogou.com/antispider/?from=%2fweixin%3Fquery%3dexamplecorp"
	accountURL = "http://weixin.sogou.com/gzh?openid=oIWsFt1"

	searchHTML = `<html><body>
<div class="results mt7">
  <div class="wx-rb bg-blue wx-rb_v1 _item" href="/gzh?openid=oIWsFt1"><div class="txt-box">ExampleCorp</div></div>
  <div class="wx-rb bg-blue wx-rb_v1 _item" href="/gzh?openid=other"><div class="txt-box">Other</div></div>
</div>
</body></html>`

	emptySearchHTML = `<html><body><div class="results mt7"></div></body></html>`

	// 一次推送包含头条和一篇多图文子条目,另一次推送只有头条
	accountHTML = `<html><head>
<script type="text/javascript">var a = 1;</script>
<script type="text/javascript">var b = 2;</script>
<script type="text/javascript">
var msgList = '{"list":[{"app_msg_ext_info":{"content_url":"\\/s?timestamp=1&amp;amp;src=3&amp;amp;signature=abc","cover":"http:\\/\\/mmbiz.qpic.cn\\/a.jpg","digest":"first","multi_app_msg_item_list":[{"content_url":"\\/s?timestamp=2&amp;amp;src=3","cover":"http:\\/\\/mmbiz.qpic.cn\\/b.jpg","digest":"second"}]},"comm_msg_info":{"datetime":1500000000}},{"app_msg_ext_info":{"content_url":"\\/s?timestamp=3&amp;amp;src=3","cover":"","digest":"third"},"comm_msg_info":{"datetime":"1500086400"}}]}';
</script>
</head><body>
<div class="profile_info"><strong class="profile_nickname">ExampleCorp</strong></div>
</body></html>`

	emptyAccountHTML = `<html><head>
<script type="text/javascript">var a = 1;</script>
<script type="text/javascript">var b = 2;</script>
<script type="text/javascript">
var msgList = '{"list":[]}';
</script>
</head><body><div><strong class="profile_nickname">ExampleCorp</strong></div></body></html>`

	articleURL1 = "http://mp.weixin.qq.com/s?timestamp=1&src=3&signature=abc"
	articleURL2 = "http://mp.weixin.qq.com/s?timestamp=2&src=3"
	articleURL3 = "http://mp.weixin.qq.com/s?timestamp=3&src=3"

	articleHTML = `<html><body>
<div id="page-content"><div>
  <h2> Quarterly Update </h2>
  <em id="post-user">ExampleCorp</em>
  <div id="js_content"><p>Hello</p></div>
</div></div>
<script type="text/javascript">
var biz = "" || "MzA5NzAx";
var sn = "" || "f3a1c9";
var mid = "" || "2650012345";
var idx = "" || "1";
</script>
</body></html>`

	canonicalURL = "http://mp.weixin.qq.com/s?biz=MzA5NzAx&sn=f3a1c9&mid=2650012345&idx=1"
)

func mustPage(t *testing.T, url string, cookies []string, body string) *Page {
	t.Helper()
	page, err := NewPage(url, cookies, []byte(body))
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}
	return page
}

func mustSearchTask(t *testing.T) *models.CrawlTask {
	t.Helper()
	task, err := models.NewCrawlTask("examplecorp", searchURL)
	if err != nil {
		t.Fatalf("NewCrawlTask() error = %v", err)
	}
	return task
}

func newTestDispatcher(def models.Identity) (*Dispatcher, *cookiepool.Pool) {
	pool := cookiepool.New(def)
	return NewDispatcher(pool, NewMetaStore(), DefaultOptions()), pool
}

func sessionCookies(snuid, suid string) []string {
	return []string{
		"SNUID=" + snuid + "; expires=Thu, 01-Jan-2030 00:00:00 GMT; domain=.sogou.com; path=/",
		"SUID=" + suid + "; expires=Thu, 01-Jan-2030 00:00:00 GMT; domain=.sogou.com; path=/",
	}
}

package discussion

// commentsPageSize is the number of comments fetched with a discussion.
// Later pages are not requested.
const commentsPageSize = 100

// categoriesPageSize is the number of discussion categories searched by name.
const categoriesPageSize = 25

const getDiscussionQuery = `query GetDiscussion($owner: String!, $repo: String!, $number: Int!, $first: Int!) {
  repository(owner: $owner, name: $repo) {
    discussion(number: $number) {
      id
      title
      url
      comments(first: $first) {
        edges {
          node {
            id
            body
            url
            createdAt
            updatedAt
          }
        }
      }
    }
  }
}`

const getDiscussionIDQuery = `query($owner: String!, $repo: String!, $number: Int!) {
  repository(owner: $owner, name: $repo) {
    discussion(number: $number) {
      id
    }
  }
}`

const getRepositoryIDQuery = `query($owner: String!, $repo: String!) {
  repository(owner: $owner, name: $repo) {
    id
  }
}`

const getDiscussionCategoriesQuery = `query($owner: String!, $repo: String!, $first: Int!) {
  repository(owner: $owner, name: $repo) {
    discussionCategories(first: $first) {
      nodes {
        id
        name
      }
    }
  }
}`

const viewerQuery = `query { viewer { login } }`

const addCommentMutation = `mutation AddComment($discussionId: ID!, $body: String!) {
  addDiscussionComment(input: {discussionId: $discussionId, body: $body}) {
    comment {
      id
      body
      url
      createdAt
      updatedAt
    }
  }
}`

const updateCommentMutation = `mutation UpdateDiscussionComment($commentId: ID!, $body: String!) {
  updateDiscussionComment(input: {commentId: $commentId, body: $body}) {
    comment {
      id
      body
      url
      createdAt
      updatedAt
    }
  }
}`

const createDiscussionMutation = `mutation($repositoryId: ID!, $categoryId: ID!, $title: String!, $body: String!) {
  createDiscussion(input: {repositoryId: $repositoryId, categoryId: $categoryId, title: $title, body: $body}) {
    discussion {
      id
      title
      url
    }
  }
}`
